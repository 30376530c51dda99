package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmarquez/tasknestbackend/database"
	"github.com/dmarquez/tasknestbackend/dto"
	"github.com/dmarquez/tasknestbackend/models"
	"github.com/dmarquez/tasknestbackend/tokens"
	"github.com/dmarquez/tasknestbackend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.RegisterDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.ValidationError(err.Error()))
			return
		}

		email := strings.ToLower(strings.TrimSpace(body.Email))

		hash, err := utils.HashPassword(body.Password)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		now := time.Now().UTC()
		user := models.User{
			ID:           bson.NewObjectID(),
			Name:         strings.TrimSpace(body.Name),
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleUser,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		usersCol := database.OpenCollection("users")
		if _, err := usersCol.InsertOne(ctx, user); err != nil {
			// The unique email index decides races between concurrent
			// registrations: exactly one insert wins.
			if utils.IsDuplicateKey(err) {
				utils.RespondError(c, utils.ErrConflict)
				return
			}
			utils.RespondError(c, err)
			return
		}

		database.RecordActivity(ctx, &user.ID, models.ActionRegister, "account created: "+email)

		c.JSON(http.StatusCreated, gin.H{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"createdAt": user.CreatedAt,
		})
	}
}

func Login(tok *tokens.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.ValidationError(err.Error()))
			return
		}

		email := strings.ToLower(strings.TrimSpace(body.Email))

		users := database.NewUserStore()
		user, err := users.FindActiveByEmail(ctx, email)
		if err != nil {
			utils.RespondError(c, utils.ErrInvalidCredentials)
			return
		}

		if err := utils.CheckPassword(user.PasswordHash, body.Password); err != nil {
			utils.RespondError(c, utils.ErrInvalidCredentials)
			return
		}

		session, err := tok.IssueSession(ctx, user)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.SetRefreshCookie(c, session.RefreshToken)
		database.RecordActivity(ctx, &user.ID, models.ActionLogin, "logged in")

		c.JSON(http.StatusOK, gin.H{
			"accessToken":  session.AccessToken,
			"refreshToken": session.RefreshToken,
			"expiresIn":    session.ExpiresIn,
			"user": gin.H{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

func Refresh(tok *tokens.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		refresh := refreshTokenFromRequest(c)
		if refresh == "" {
			utils.RespondError(c, utils.ErrUnauthenticated)
			return
		}

		access, err := tok.Rotate(ctx, refresh)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"accessToken": access})
	}
}

func Logout(tok *tokens.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		refresh := refreshTokenFromRequest(c)
		utils.ClearRefreshCookie(c)

		// best effort revoke
		if refresh != "" {
			if row, err := tok.FindStored(ctx, refresh); err == nil {
				database.RecordActivity(ctx, &row.UserID, models.ActionLogout, "logged out")
			}
			_ = tok.Revoke(ctx, refresh)
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func refreshTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie("refreshToken"); err == nil && cookie != "" {
		return cookie
	}
	var body dto.RefreshDTO
	if err := c.ShouldBindJSON(&body); err == nil {
		return body.RefreshToken
	}
	return ""
}
