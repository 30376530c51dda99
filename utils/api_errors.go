package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is a typed failure surfaced at the HTTP boundary as a fixed
// status+message pair. Controllers return these instead of picking status
// codes inline.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

var (
	ErrValidation         = &APIError{Status: http.StatusBadRequest, Code: "validation_error", Message: "invalid request payload"}
	ErrInvalidCredentials = &APIError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "invalid email or password"}
	ErrUnauthenticated    = &APIError{Status: http.StatusUnauthorized, Code: "unauthenticated", Message: "missing or malformed authorization header"}
	ErrInvalidToken       = &APIError{Status: http.StatusUnauthorized, Code: "invalid_token", Message: "invalid or expired access token"}
	ErrRevokedSession     = &APIError{Status: http.StatusUnauthorized, Code: "revoked_session", Message: "refresh token is not recognized"}
	ErrExpiredSession     = &APIError{Status: http.StatusUnauthorized, Code: "expired_session", Message: "refresh token has expired"}
	ErrSessionRevoked     = &APIError{Status: http.StatusForbidden, Code: "session_revoked", Message: "session has been revoked, full re-authentication required"}
	ErrForbiddenAction    = &APIError{Status: http.StatusForbidden, Code: "forbidden_action", Message: "you are not allowed to perform this action"}
	ErrNotFound           = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrConflict           = &APIError{Status: http.StatusConflict, Code: "conflict", Message: "resource already exists"}
)

// ValidationError keeps the fixed 400 mapping but carries the binding
// error message so the client can correct the request.
func ValidationError(msg string) *APIError {
	return &APIError{Status: ErrValidation.Status, Code: ErrValidation.Code, Message: msg}
}

// RespondError writes the error to the response and aborts the request.
// Anything that is not an *APIError becomes an opaque 500.
func RespondError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
}
