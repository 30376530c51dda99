package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Action tags recorded in the activity log. Entries are append-only: they
// are never mutated except for the cascading soft-delete/restore that
// follows their user.
const (
	ActionRegister      = "register"
	ActionLogin         = "login"
	ActionLogout        = "logout"
	ActionProfileUpdate = "profile_update"
	ActionTodoCreate    = "todo_create"
	ActionRoleChange    = "role_change"
	ActionDeactivate    = "deactivate"
	ActionRestore       = "restore"
)

type ActivityLog struct {
	ID        bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    *bson.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Action    string         `bson:"action" json:"action"`
	Details   string         `bson:"details,omitempty" json:"details,omitempty"`
	DeletedAt *time.Time     `bson:"deletedAt,omitempty" json:"-"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}
