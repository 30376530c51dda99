package database

import (
	"context"
	"log"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AppendActivity inserts an audit entry. Pass a session context to make
// the insert part of a surrounding transaction.
func AppendActivity(ctx context.Context, userID *bson.ObjectID, action, details string) error {
	entry := models.ActivityLog{
		ID:        bson.NewObjectID(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	_, err := OpenCollection("activity_logs").InsertOne(ctx, entry)
	return err
}

// RecordActivity is the fire-and-forget variant for entries that must not
// fail the operation that triggered them.
func RecordActivity(ctx context.Context, userID *bson.ObjectID, action, details string) {
	if err := AppendActivity(ctx, userID, action, details); err != nil {
		log.Printf("activity log: %s append failed: %v", action, err)
	}
}

// ListActivity returns entries newest-first, hiding rows cascaded into
// soft-delete with their user. An optional userID narrows to one actor.
func ListActivity(ctx context.Context, userID *bson.ObjectID, skip, limit int64) ([]models.ActivityLog, int64, error) {
	filter := bson.M{"deletedAt": bson.M{"$exists": false}}
	if userID != nil {
		filter["userId"] = *userID
	}

	col := OpenCollection("activity_logs")

	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	items := make([]models.ActivityLog, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}
