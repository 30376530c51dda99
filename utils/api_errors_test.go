package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondError(c, err)
	return w
}

func TestRespondErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    *APIError
		status int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrInvalidToken, http.StatusUnauthorized},
		{ErrRevokedSession, http.StatusUnauthorized},
		{ErrExpiredSession, http.StatusUnauthorized},
		{ErrSessionRevoked, http.StatusForbidden},
		{ErrForbiddenAction, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			w := respond(tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.err.Code)
		})
	}
}

func TestRespondErrorWrappedAPIError(t *testing.T) {
	wrapped := fmt.Errorf("rotating session: %w", ErrExpiredSession)
	w := respond(wrapped)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), ErrExpiredSession.Code)
}

func TestRespondErrorOpaque500(t *testing.T) {
	w := respond(errors.New("mongo: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused",
		"internal details must not leak to clients")
}

func TestValidationErrorKeepsTaxonomy(t *testing.T) {
	err := ValidationError("name is required")
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "name is required", err.Message)
}
