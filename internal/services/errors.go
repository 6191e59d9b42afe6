// Package services defines the business logic for properties, chats, and
// uploads. This file centralizes service-level error values so that they can
// be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages and HTTP status codes is performed
// at the handler layer.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPropertyNotFound indicates that the referenced property does not
	// exist.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrChatNotFound indicates that the referenced chat does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrForbidden is returned when an authenticated caller is not allowed
	// to act on the resource: a mutation by a non-owner, or chat access by
	// a non-participant.
	ErrForbidden = errors.New("forbidden")

	// ErrSelfChat is returned when a property owner tries to open a chat on
	// their own listing.
	ErrSelfChat = errors.New("cannot start a chat on your own property")

	// ErrEmptyMessage is returned when a send-message request carries no
	// content.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrNoFile is returned when an upload request carries no file payload.
	ErrNoFile = errors.New("no file provided")
)

// ValidationError reports malformed or missing required fields. Fields holds
// the offending field names so clients can highlight exact inputs.
type ValidationError struct {
	Fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

// FileTooLargeError is returned when an upload exceeds its configured size
// ceiling. MaxBytes carries the ceiling so the client can present an exact
// message.
type FileTooLargeError struct {
	MaxBytes int64
}

// Error implements the error interface.
func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file exceeds the maximum allowed size of %d bytes", e.MaxBytes)
}
