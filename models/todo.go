package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type TodoStatus string

const (
	TodoStatusPending    TodoStatus = "pending"
	TodoStatusInProgress TodoStatus = "inProgress"
	TodoStatusCompleted  TodoStatus = "completed"
)

type TodoPriority string

const (
	TodoPriorityLow    TodoPriority = "low"
	TodoPriorityMedium TodoPriority = "medium"
	TodoPriorityHigh   TodoPriority = "high"
)

type TodoAttachment struct {
	PublicURL  string    `bson:"publicUrl" json:"publicUrl"`
	ObjectName string    `bson:"objectName" json:"objectName"`
	FileName   string    `bson:"fileName" json:"fileName"`
	MimeType   string    `bson:"mimeType" json:"mimeType"`
	SizeBytes  int64     `bson:"sizeBytes" json:"sizeBytes"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

type Todo struct {
	ID bson.ObjectID `bson:"_id,omitempty" json:"id"`

	OwnerID    bson.ObjectID  `bson:"ownerId" json:"ownerId"`
	AssigneeID *bson.ObjectID `bson:"assigneeId,omitempty" json:"assigneeId,omitempty"`

	Title       string       `bson:"title" json:"title"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Status      TodoStatus   `bson:"status" json:"status"`
	Priority    TodoPriority `bson:"priority" json:"priority"`

	Category     string `bson:"category,omitempty" json:"category,omitempty"`
	CategorySlug string `bson:"categorySlug,omitempty" json:"categorySlug,omitempty"`

	DueDate  *time.Time `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Reminded bool       `bson:"reminded" json:"reminded"`

	Attachments []TodoAttachment `bson:"attachments,omitempty" json:"attachments,omitempty"`

	DeletedAt *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// VisibleTo reports whether a non-admin user id may read or modify this todo.
func (t *Todo) VisibleTo(userID bson.ObjectID) bool {
	if t.OwnerID == userID {
		return true
	}
	return t.AssigneeID != nil && *t.AssigneeID == userID
}
