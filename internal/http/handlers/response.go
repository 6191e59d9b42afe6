// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints: a structured error envelope, consistent JSON serialization,
// and the translation from service-level errors to HTTP results. The goal
// is uniform, machine-friendly responses for both success and failure.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hklets/go-rental-backend/internal/http/middleware"
	"github.com/hklets/go-rental-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Fields:
//   - RequestID: correlation ID echoed from X-Request-ID, used to tie
//     client errors to server logs.
//   - Code: stable machine-readable string (see errors.go constants).
//   - Message: human-readable description, safe to show to users.
//   - Fields: present only for validation_failed; the offending inputs.
//   - MaxBytes: present only for file_too_large; the configured ceiling.
type ErrorResponse struct {
	RequestID string   `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string   `json:"code" example:"not_found"`
	Message   string   `json:"message" example:"resource not found"`
	Fields    []string `json:"fields,omitempty"`
	MaxBytes  int64    `json:"max_bytes,omitempty"`
}

// fail aborts the request with a structured error and logs server-side
// errors (>=500) with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg})
}

func failWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(). External packages (e.g. router
// fallbacks) use it to return consistent envelopes.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failService maps known service errors to their HTTP result and falls back
// to a logged 500 for anything unanticipated, without leaking internals.
func failService(c *gin.Context, err error) {
	var vErr *services.ValidationError
	var sizeErr *services.FileTooLargeError

	switch {
	case errors.Is(err, services.ErrPropertyNotFound),
		errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "you are not allowed to access this resource")
	case errors.Is(err, services.ErrSelfChat):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrEmptyMessage):
		failWith(c, http.StatusBadRequest, ErrorResponse{
			Code:    ErrCodeValidation,
			Message: err.Error(),
			Fields:  []string{"content"},
		})
	case errors.Is(err, services.ErrNoFile):
		fail(c, http.StatusBadRequest, ErrCodeNoFile, err.Error())
	case errors.As(err, &vErr):
		failWith(c, http.StatusBadRequest, ErrorResponse{
			Code:    ErrCodeValidation,
			Message: vErr.Error(),
			Fields:  vErr.Fields,
		})
	case errors.As(err, &sizeErr):
		failWith(c, http.StatusRequestEntityTooLarge, ErrorResponse{
			Code:     ErrCodeFileTooLarge,
			Message:  sizeErr.Error(),
			MaxBytes: sizeErr.MaxBytes,
		})
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
