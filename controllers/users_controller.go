package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmarquez/tasknestbackend/database"
	"github.com/dmarquez/tasknestbackend/dto"
	"github.com/dmarquez/tasknestbackend/mailer"
	"github.com/dmarquez/tasknestbackend/middleware"
	"github.com/dmarquez/tasknestbackend/models"
	"github.com/dmarquez/tasknestbackend/policy"
	"github.com/dmarquez/tasknestbackend/tokens"
	"github.com/dmarquez/tasknestbackend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GET /admin/users
func GetUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		filter := bson.M{}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			filter["$or"] = []bson.M{
				{"name": bson.M{"$regex": q, "$options": "i"}},
				{"email": bson.M{"$regex": q, "$options": "i"}},
			}
		}
		if active, err := utils.ParseBoolQuery(c.Query("active")); err == nil && active != nil {
			filter["deletedAt"] = bson.M{"$exists": !*active}
		}

		page, limit, skip := utils.Pagination(c)

		col := database.OpenCollection("users")
		opts := options.Find().
			SetSkip(skip).
			SetLimit(int64(limit)).
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetProjection(bson.M{"passwordHash": 0})

		cursor, err := col.Find(ctx, filter, opts)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		defer cursor.Close(ctx)

		items := make([]models.User, 0)
		if err := cursor.All(ctx, &items); err != nil {
			utils.RespondError(c, err)
			return
		}

		total, err := col.CountDocuments(ctx, filter)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items": items,
			"page":  page,
			"limit": limit,
			"total": total,
		})
	}
}

// PATCH /admin/users/:id/role
func ChangeUserRole(tok *tokens.Service, sender mailer.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		var body dto.ChangeRoleDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.ValidationError(err.Error()))
			return
		}

		target, err := loadTargetUser(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		if err := policy.CanChangeRole(actor, target); err != nil {
			utils.RespondError(c, err)
			return
		}

		newRole := models.Role(body.Role)
		if newRole == target.Role {
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}

		actorID, _ := actor.ObjectID()

		err = withTransaction(ctx, func(ctx context.Context) error {
			if _, err := database.OpenCollection("users").UpdateByID(ctx, target.ID, bson.M{
				"$set": bson.M{"role": newRole, "updatedAt": time.Now().UTC()},
			}); err != nil {
				return err
			}
			return database.AppendActivity(ctx, &actorID, models.ActionRoleChange,
				"changed role of "+target.Email+" to "+string(newRole))
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		// Force every live session out so the new role takes effect on
		// the target's next request, not just their next token refresh.
		if err := tok.RevokeAll(ctx, target.ID); err != nil {
			utils.RespondError(c, err)
			return
		}

		target.Role = newRole
		if newRole == models.RoleAdmin {
			mailer.Dispatch(sender, mailer.Promotion(target))
		} else {
			mailer.Dispatch(sender, mailer.Demotion(target))
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "role": newRole})
	}
}

// POST /admin/users/:id/deactivate
//
// Deactivation cascades: the user, their owned todos, and their activity
// entries all get the same soft-delete timestamp inside one transaction.
// Sharing the timestamp is what lets restore reverse exactly this cascade
// and nothing else.
func DeactivateUser(tok *tokens.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		target, err := loadTargetUser(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		if err := policy.CanDeactivate(actor, target); err != nil {
			utils.RespondError(c, err)
			return
		}

		actorID, _ := actor.ObjectID()
		now := time.Now().UTC()

		err = withTransaction(ctx, func(ctx context.Context) error {
			if _, err := database.OpenCollection("users").UpdateByID(ctx, target.ID, bson.M{
				"$set": bson.M{"deletedAt": now, "updatedAt": now},
			}); err != nil {
				return err
			}
			if _, err := database.OpenCollection("todos").UpdateMany(ctx,
				bson.M{"ownerId": target.ID, "deletedAt": bson.M{"$exists": false}},
				bson.M{"$set": bson.M{"deletedAt": now, "updatedAt": now}},
			); err != nil {
				return err
			}
			if _, err := database.OpenCollection("activity_logs").UpdateMany(ctx,
				bson.M{"userId": target.ID, "deletedAt": bson.M{"$exists": false}},
				bson.M{"$set": bson.M{"deletedAt": now}},
			); err != nil {
				return err
			}
			return database.AppendActivity(ctx, &actorID, models.ActionDeactivate,
				"deactivated account "+target.Email)
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		if err := tok.RevokeAll(ctx, target.ID); err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// POST /admin/users/:id/restore
func RestoreUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		target, err := loadTargetUser(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		if err := policy.CanRestore(actor, target); err != nil {
			utils.RespondError(c, err)
			return
		}

		actorID, _ := actor.ObjectID()
		deletedAt := *target.DeletedAt
		now := time.Now().UTC()

		err = withTransaction(ctx, func(ctx context.Context) error {
			if _, err := database.OpenCollection("users").UpdateByID(ctx, target.ID, bson.M{
				"$unset": bson.M{"deletedAt": ""},
				"$set":   bson.M{"updatedAt": now},
			}); err != nil {
				return err
			}
			// Only rows the deactivation cascade touched come back; todos
			// the user had deleted themselves stay deleted.
			if _, err := database.OpenCollection("todos").UpdateMany(ctx,
				bson.M{"ownerId": target.ID, "deletedAt": deletedAt},
				bson.M{"$unset": bson.M{"deletedAt": ""}, "$set": bson.M{"updatedAt": now}},
			); err != nil {
				return err
			}
			if _, err := database.OpenCollection("activity_logs").UpdateMany(ctx,
				bson.M{"userId": target.ID, "deletedAt": deletedAt},
				bson.M{"$unset": bson.M{"deletedAt": ""}},
			); err != nil {
				return err
			}
			return database.AppendActivity(ctx, &actorID, models.ActionRestore,
				"restored account "+target.Email)
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// PATCH /me
func UpdateMyProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		actorID, err := actor.ObjectID()
		if err != nil {
			utils.RespondError(c, utils.ErrUnauthenticated)
			return
		}

		var body dto.UpdateProfileDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.ValidationError(err.Error()))
			return
		}

		set := bson.M{}
		if body.Name != nil {
			v := strings.TrimSpace(*body.Name)
			if v == "" {
				utils.RespondError(c, utils.ValidationError("name cannot be empty"))
				return
			}
			set["name"] = v
		}
		if body.Email != nil {
			set["email"] = strings.ToLower(strings.TrimSpace(*body.Email))
		}

		if len(set) == 0 {
			utils.RespondError(c, utils.ValidationError("no updates provided"))
			return
		}
		set["updatedAt"] = time.Now().UTC()

		_, err = database.OpenCollection("users").UpdateByID(ctx, actorID, bson.M{"$set": set})
		if err != nil {
			if utils.IsDuplicateKey(err) {
				utils.RespondError(c, utils.ErrConflict)
				return
			}
			utils.RespondError(c, err)
			return
		}

		database.RecordActivity(ctx, &actorID, models.ActionProfileUpdate, "profile updated")

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// POST /me/password
func ChangeMyPassword(tok *tokens.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		var body dto.ChangeMyPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.ValidationError(err.Error()))
			return
		}

		actorID, err := actor.ObjectID()
		if err != nil {
			utils.RespondError(c, utils.ErrUnauthenticated)
			return
		}

		user, err := database.NewUserStore().FindByID(ctx, actorID)
		if err != nil {
			utils.RespondError(c, utils.ErrUnauthenticated)
			return
		}

		if err := utils.CheckPassword(user.PasswordHash, body.CurrentPassword); err != nil {
			utils.RespondError(c, utils.ErrInvalidCredentials)
			return
		}

		newHash, err := utils.HashPassword(body.NewPassword)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		_, err = database.OpenCollection("users").UpdateByID(ctx, actorID, bson.M{
			"$set": bson.M{"passwordHash": newHash, "updatedAt": time.Now().UTC()},
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		// A password change drops every session, including this one.
		_ = tok.RevokeAll(ctx, actorID)
		utils.ClearRefreshCookie(c)
		database.RecordActivity(ctx, &actorID, models.ActionProfileUpdate, "password changed")

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func loadTargetUser(c *gin.Context) (*models.User, error) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return nil, utils.ValidationError("invalid user id")
	}
	user, err := database.NewUserStore().FindByID(c.Request.Context(), id)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// withTransaction wraps multi-document mutations that must be atomic.
func withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := database.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}
