// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the authorization gate. Every mutating or
// personalized endpoint sits behind RequireAuth, which resolves the bearer
// credential into a session principal and stores the user id and email in
// the Gin context, or short-circuits the request with a 401 envelope.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hklets/go-rental-backend/internal/auth"
)

const (
	// ContextUserIDKey is the Gin context key holding the caller's user id.
	ContextUserIDKey = "userID"
	// ContextEmailKey is the Gin context key holding the caller's email.
	ContextEmailKey = "userEmail"
)

// RequireAuth verifies the Authorization bearer token and attaches the
// resolved session to the context. Requests without a valid credential are
// aborted with 401 and the standard error envelope; the middleware never
// touches the credential store.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			unauthenticated(c, "missing bearer token")
			return
		}
		session, err := auth.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			unauthenticated(c, "invalid or expired token")
			return
		}
		c.Set(ContextUserIDKey, session.UserID)
		c.Set(ContextEmailKey, session.Email)
		c.Next()
	}
}

// UserID returns the authenticated caller's id, or "" on unguarded routes.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func unauthenticated(c *gin.Context, msg string) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": asString(rid),
		"code":       "unauthenticated",
		"message":    msg,
	})
}
