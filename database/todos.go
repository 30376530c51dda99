package database

import (
	"context"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// TodoStore exposes the reminder-facing todo operations. Request handlers
// work the collections directly; the scheduler goes through this so it can
// be tested against a stub.
type TodoStore struct{}

func NewTodoStore() *TodoStore {
	return &TodoStore{}
}

// DueWithin returns live, not-yet-reminded todos whose due date falls
// inside the lookahead window (including ones already overdue).
func (s *TodoStore) DueWithin(ctx context.Context, window time.Duration) ([]models.Todo, error) {
	now := time.Now().UTC()
	cursor, err := OpenCollection("todos").Find(ctx, bson.M{
		"dueDate":   bson.M{"$lte": now.Add(window)},
		"reminded":  false,
		"status":    bson.M{"$ne": models.TodoStatusCompleted},
		"deletedAt": bson.M{"$exists": false},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Todo, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *TodoStore) MarkReminded(ctx context.Context, ids []bson.ObjectID) error {
	return s.setReminded(ctx, ids, true)
}

func (s *TodoStore) ClearReminded(ctx context.Context, ids []bson.ObjectID) error {
	return s.setReminded(ctx, ids, false)
}

func (s *TodoStore) setReminded(ctx context.Context, ids []bson.ObjectID, reminded bool) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := OpenCollection("todos").UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"reminded": reminded}},
	)
	return err
}
