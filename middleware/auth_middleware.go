package middleware

import (
	"context"
	"strings"

	"github.com/dmarquez/tasknestbackend/models"
	"github.com/dmarquez/tasknestbackend/policy"
	"github.com/dmarquez/tasknestbackend/utils"
	"github.com/gin-gonic/gin"
)

// SessionChecker answers "does this user still have a live session".
// Implemented by tokens.Service; stubbed in tests.
type SessionChecker interface {
	HasLiveSession(ctx context.Context, userID string) (bool, error)
}

// AuthMiddleware walks the per-request gate:
// no/garbled bearer header -> 401, bad signature or expired token -> 401,
// valid token but no live refresh-token row -> 403. The 403 is what makes
// promote/demote/deactivate force-visible on the very next request; the
// client must discard its tokens and re-authenticate.
func AuthMiddleware(sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			utils.RespondError(c, utils.ErrUnauthenticated)
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := utils.ValidateAccessToken(tokenStr)
		if err != nil {
			utils.RespondError(c, utils.ErrInvalidToken)
			return
		}

		live, err := sessions.HasLiveSession(c.Request.Context(), claims.UserID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if !live {
			utils.RespondError(c, utils.ErrSessionRevoked)
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireAdmin gates the /admin group; runs after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, ok := c.Get("role")
		if !ok || roleVal.(string) != string(models.RoleAdmin) {
			utils.RespondError(c, utils.ErrForbiddenAction)
			return
		}
		c.Next()
	}
}

// Actor rebuilds the policy actor from the request context.
func Actor(c *gin.Context) policy.Actor {
	return policy.Actor{
		ID:    c.GetString("userID"),
		Email: c.GetString("email"),
		Role:  models.Role(c.GetString("role")),
	}
}
