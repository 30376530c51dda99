package mailer

import (
	"testing"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTaskAssigned(t *testing.T) {
	assignee := &models.User{ID: bson.NewObjectID(), Name: "Ben", Email: "ben@example.com"}
	todo := &models.Todo{Title: "review budget", Priority: models.TodoPriorityHigh}

	m := TaskAssigned(assignee, "alice@example.com", todo)
	assert.Equal(t, "ben@example.com", m.To)
	assert.Contains(t, m.Subject, "review budget")
	assert.Contains(t, m.Body, "alice@example.com")
	assert.Contains(t, m.Body, string(models.TodoPriorityHigh))
}

func TestTaskDueIncludesDueDate(t *testing.T) {
	due := time.Date(2026, 9, 14, 17, 0, 0, 0, time.UTC)
	assignee := &models.User{Name: "Ben", Email: "ben@example.com"}
	todo := &models.Todo{Title: "submit filing", DueDate: &due}

	m := TaskDue(assignee, todo)
	assert.Contains(t, m.Subject, "submit filing")
	assert.Contains(t, m.Body, "14 Sep 2026")
}

func TestRoleChangeMessages(t *testing.T) {
	user := &models.User{Name: "Ben", Email: "ben@example.com"}

	promo := Promotion(user)
	assert.Equal(t, "ben@example.com", promo.To)
	assert.Contains(t, promo.Body, "sign in again")

	demo := Demotion(user)
	assert.Equal(t, "ben@example.com", demo.To)
	assert.Contains(t, demo.Body, "sign in again")
}
