package controllers

import (
	"net/http"

	"github.com/dmarquez/tasknestbackend/database"
	"github.com/dmarquez/tasknestbackend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// GET /admin/activity
func GetActivityLogs() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var userID *bson.ObjectID
		if raw := c.Query("userId"); raw != "" {
			id, err := bson.ObjectIDFromHex(raw)
			if err != nil {
				utils.RespondError(c, utils.ValidationError("invalid userId filter"))
				return
			}
			userID = &id
		}

		page, limit, skip := utils.Pagination(c)

		items, total, err := database.ListActivity(ctx, userID, skip, int64(limit))
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
