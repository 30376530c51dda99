package controllers

import (
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
	"github.com/dmarquez/tasknestbackend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func CreateTodo(sender mailer.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		var body dto.CreateTodoDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.ValidationError(err.Error()))
			return
		}

		ownerID, err := actor.ObjectID()
		if err != nil {
			utils.RespondError(c, utils.ErrUnauthenticated)
			return
		}

		priority := models.TodoPriority(body.Priority)
		if priority == "" {
			priority = models.TodoPriorityMedium
		}

		now := time.Now().UTC()
		todo := models.Todo{
			ID:          bson.NewObjectID(),
			OwnerID:     ownerID,
			Title:       strings.TrimSpace(body.Title),
			Description: strings.TrimSpace(body.Description),
			Status:      models.TodoStatusPending,
			Priority:    priority,
			DueDate:     body.DueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if category := strings.TrimSpace(body.Category); category != "" {
			todo.Category = category
			todo.CategorySlug = utils.GenerateSlug(category)
		}

		var assignee *models.User
		if body.AssigneeID != "" {
			assignee, err = resolveAssignee(c, body.AssigneeID)
			if err != nil {
				utils.RespondError(c, err)
				return
			}
			todo.AssigneeID = &assignee.ID
		}

		if _, err := database.OpenCollection("todos").InsertOne(ctx, todo); err != nil {
			utils.RespondError(c, err)
			return
		}

		database.RecordActivity(ctx, &ownerID, models.ActionTodoCreate, "created todo: "+todo.Title)

		if assignee != nil {
			mailer.Dispatch(sender, mailer.TaskAssigned(assignee, actor.Email, &todo))
		}

		c.JSON(http.StatusCreated, todo)
	}
}

func GetTodos() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		filter, err := visibilityFilter(actor)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["status"] = status
		}
		if priority := strings.TrimSpace(c.Query("priority")); priority != "" {
			filter["priority"] = priority
		}
		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["categorySlug"] = utils.GenerateSlug(category)
		}

		page, limit, skip := utils.Pagination(c)

		col := database.OpenCollection("todos")
		opts := options.Find().
			SetSkip(skip).
			SetLimit(int64(limit)).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := col.Find(ctx, filter, opts)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		defer cursor.Close(ctx)

		items := make([]models.Todo, 0)
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

func GetTodo() gin.HandlerFunc {
	return func(c *gin.Context) {
		todo, err := loadVisibleTodo(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, todo)
	}
}

func UpdateTodo(sender mailer.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		todo, err := loadVisibleTodo(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		var body dto.UpdateTodoDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, utils.ValidationError(err.Error()))
			return
		}

		set := bson.M{"updatedAt": time.Now().UTC()}
		unset := bson.M{}

		if body.Title != nil {
			v := strings.TrimSpace(*body.Title)
			if v == "" {
				utils.RespondError(c, utils.ValidationError("title cannot be empty"))
				return
			}
			set["title"] = v
			todo.Title = v
		}
		if body.Description != nil {
			set["description"] = strings.TrimSpace(*body.Description)
		}
		if body.Status != nil {
			set["status"] = *body.Status
			todo.Status = models.TodoStatus(*body.Status)
		}
		if body.Priority != nil {
			set["priority"] = *body.Priority
			todo.Priority = models.TodoPriority(*body.Priority)
		}
		if body.Category != nil {
			v := strings.TrimSpace(*body.Category)
			set["category"] = v
			set["categorySlug"] = utils.GenerateSlug(v)
		}
		if body.DueDate != nil {
			set["dueDate"] = *body.DueDate
			// A new deadline earns a new reminder.
			set["reminded"] = false
		}

		var newAssignee *models.User
		assignmentChanged := false
		if body.AssigneeID != nil {
			if *body.AssigneeID == "" {
				if todo.AssigneeID != nil {
					unset["assigneeId"] = ""
					assignmentChanged = true
					todo.AssigneeID = nil
				}
			} else {
				newAssignee, err = resolveAssignee(c, *body.AssigneeID)
				if err != nil {
					utils.RespondError(c, err)
					return
				}
				if todo.AssigneeID == nil || *todo.AssigneeID != newAssignee.ID {
					assignmentChanged = true
				}
				set["assigneeId"] = newAssignee.ID
				todo.AssigneeID = &newAssignee.ID
			}
		}

		update := bson.M{"$set": set}
		if len(unset) > 0 {
			update["$unset"] = unset
		}

		res, err := database.OpenCollection("todos").UpdateByID(ctx, todo.ID, update)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if res.MatchedCount == 0 {
			utils.RespondError(c, utils.ErrNotFound)
			return
		}

		// Assignment changes notify the new assignee; any other update to
		// an already-assigned todo notifies the current assignee.
		switch {
		case assignmentChanged && newAssignee != nil:
			mailer.Dispatch(sender, mailer.TaskAssigned(newAssignee, actor.Email, todo))
		case !assignmentChanged && todo.AssigneeID != nil:
			if assignee, err := database.NewUserStore().FindByID(ctx, *todo.AssigneeID); err == nil && assignee.IsActive() {
				mailer.Dispatch(sender, mailer.TaskUpdated(assignee, actor.Email, todo))
			}
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func DeleteTodo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		todo, err := loadVisibleTodo(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		now := time.Now().UTC()
		_, err = database.OpenCollection("todos").UpdateByID(ctx, todo.ID, bson.M{
			"$set": bson.M{"deletedAt": now, "updatedAt": now},
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func UploadTodoAttachment(r2 *utils.R2Client, v *utils.FileValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		todo, err := loadVisibleTodo(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.RespondError(c, utils.ValidationError("missing file field"))
			return
		}

		contentType, err := v.ValidateFile(fileHeader)
		if err != nil {
			utils.RespondError(c, utils.ValidationError(err.Error()))
			return
		}

		attachment, err := utils.UploadTodoAttachment(ctx, r2, todo.ID.Hex(), fileHeader, contentType)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		_, err = database.OpenCollection("todos").UpdateByID(ctx, todo.ID, bson.M{
			"$push": bson.M{"attachments": attachment},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, attachment)
	}
}

func DeleteTodoAttachment(r2 *utils.R2Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		todo, err := loadVisibleTodo(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		objectName := c.Query("object")
		if objectName == "" {
			utils.RespondError(c, utils.ValidationError("missing object query parameter"))
			return
		}

		found := false
		for _, a := range todo.Attachments {
			if a.ObjectName == objectName {
				found = true
				break
			}
		}
		if !found {
			utils.RespondError(c, utils.ErrNotFound)
			return
		}

		_, err = database.OpenCollection("todos").UpdateByID(ctx, todo.ID, bson.M{
			"$pull": bson.M{"attachments": bson.M{"objectName": objectName}},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		// Stored object goes last: a failed cloud delete leaves an orphan
		// object, never a dangling attachment record.
		if err := utils.DeleteCloudObjects(ctx, r2, []string{objectName}); err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GetCalendar lists visible todos with a due date inside [from, to].
func GetCalendar() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		from, err := time.Parse(time.RFC3339, c.Query("from"))
		if err != nil {
			utils.RespondError(c, utils.ValidationError("from must be RFC3339"))
			return
		}
		to, err := time.Parse(time.RFC3339, c.Query("to"))
		if err != nil {
			utils.RespondError(c, utils.ValidationError("to must be RFC3339"))
			return
		}

		filter, err := visibilityFilter(actor)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		filter["dueDate"] = bson.M{"$gte": from, "$lte": to}

		cursor, err := database.OpenCollection("todos").Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}}))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		defer cursor.Close(ctx)

		items := make([]models.Todo, 0)
		if err := cursor.All(ctx, &items); err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// GetDashboardSummary returns todo counts by status for the actor's
// visible set, plus how many are overdue.
func GetDashboardSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		actor := middleware.Actor(c)

		match, err := visibilityFilter(actor)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		col := database.OpenCollection("todos")
		cursor, err := col.Aggregate(ctx, mongo.Pipeline{
			{{Key: "$match", Value: match}},
			{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		defer cursor.Close(ctx)

		var rows []struct {
			Status models.TodoStatus `bson:"_id"`
			Count  int64             `bson:"count"`
		}
		if err := cursor.All(ctx, &rows); err != nil {
			utils.RespondError(c, err)
			return
		}

		summary := gin.H{
			string(models.TodoStatusPending):    int64(0),
			string(models.TodoStatusInProgress): int64(0),
			string(models.TodoStatusCompleted):  int64(0),
		}
		var total int64
		for _, row := range rows {
			summary[string(row.Status)] = row.Count
			total += row.Count
		}

		overdueFilter, _ := visibilityFilter(actor)
		overdueFilter["dueDate"] = bson.M{"$lt": time.Now().UTC()}
		overdueFilter["status"] = bson.M{"$ne": models.TodoStatusCompleted}
		overdue, err := col.CountDocuments(ctx, overdueFilter)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"byStatus": summary,
			"total":    total,
			"overdue":  overdue,
		})
	}
}

// visibilityFilter scopes todo queries: admins see everything live,
// everyone else only what they own or are assigned.
func visibilityFilter(actor policy.Actor) (bson.M, error) {
	filter := bson.M{"deletedAt": bson.M{"$exists": false}}
	if actor.IsAdmin() {
		return filter, nil
	}
	id, err := actor.ObjectID()
	if err != nil {
		return nil, utils.ErrUnauthenticated
	}
	filter["$or"] = []bson.M{
		{"ownerId": id},
		{"assigneeId": id},
	}
	return filter, nil
}

// loadVisibleTodo fetches the todo and applies the visibility rule. A todo
// the actor may not see is reported as not found, deliberately
// indistinguishable from one that does not exist.
func loadVisibleTodo(c *gin.Context) (*models.Todo, error) {
	ctx := c.Request.Context()
	actor := middleware.Actor(c)

	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return nil, utils.ValidationError("invalid todo id")
	}

	var todo models.Todo
	err = database.OpenCollection("todos").FindOne(ctx, bson.M{
		"_id":       id,
		"deletedAt": bson.M{"$exists": false},
	}).Decode(&todo)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !policy.CanAccessTodo(actor, &todo) {
		return nil, utils.ErrNotFound
	}

	return &todo, nil
}

// resolveAssignee validates an assignee id points at an active account.
func resolveAssignee(c *gin.Context, hexID string) (*models.User, error) {
	id, err := bson.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, utils.ValidationError("invalid assignee id")
	}
	user, err := database.NewUserStore().FindByID(c.Request.Context(), id)
	if err != nil {
		return nil, utils.ValidationError("assignee does not exist")
	}
	if !user.IsActive() {
		return nil, utils.ValidationError("assignee account is deactivated")
	}
	return user, nil
}
