package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"github.com/dmarquez/tasknestbackend/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type stubSessions struct {
	live map[string]bool
	err  error
}

func (s *stubSessions) HasLiveSession(_ context.Context, userID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.live[userID], nil
}

func setupRouter(sessions SessionChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(sessions), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userID": c.GetString("userID"),
			"role":   c.GetString("role"),
		})
	})
	r.GET("/admin-only", AuthMiddleware(sessions), RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doRequest(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "mw-test-secret")
	r := setupRouter(&stubSessions{live: map[string]bool{}})

	w := doRequest(r, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, "/protected", "Basic abc123")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareBadToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "mw-test-secret")
	r := setupRouter(&stubSessions{live: map[string]bool{}})

	t.Run("garbage token", func(t *testing.T) {
		w := doRequest(r, "/protected", "Bearer not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := utils.GenerateAccessToken(bson.NewObjectID().Hex(), "u@example.com",
			string(models.RoleUser), -time.Minute)
		require.NoError(t, err)
		w := doRequest(r, "/protected", "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthMiddlewareRevokedSessionIs403(t *testing.T) {
	t.Setenv("JWT_SECRET", "mw-test-secret")
	userID := bson.NewObjectID().Hex()

	// Valid access token, but no live refresh row behind it.
	token, err := utils.GenerateAccessToken(userID, "u@example.com", string(models.RoleUser), time.Minute)
	require.NoError(t, err)

	r := setupRouter(&stubSessions{live: map[string]bool{}})
	w := doRequest(r, "/protected", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthMiddlewareHappyPath(t *testing.T) {
	t.Setenv("JWT_SECRET", "mw-test-secret")
	userID := bson.NewObjectID().Hex()

	token, err := utils.GenerateAccessToken(userID, "u@example.com", string(models.RoleAdmin), time.Minute)
	require.NoError(t, err)

	r := setupRouter(&stubSessions{live: map[string]bool{userID: true}})
	w := doRequest(r, "/protected", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID)
	assert.Contains(t, w.Body.String(), string(models.RoleAdmin))
}

func TestRequireAdmin(t *testing.T) {
	t.Setenv("JWT_SECRET", "mw-test-secret")
	adminID := bson.NewObjectID().Hex()
	userID := bson.NewObjectID().Hex()

	adminToken, err := utils.GenerateAccessToken(adminID, "a@example.com", string(models.RoleAdmin), time.Minute)
	require.NoError(t, err)
	userToken, err := utils.GenerateAccessToken(userID, "u@example.com", string(models.RoleUser), time.Minute)
	require.NoError(t, err)

	r := setupRouter(&stubSessions{live: map[string]bool{adminID: true, userID: true}})

	w := doRequest(r, "/admin-only", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, "/admin-only", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
