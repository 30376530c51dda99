package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"passwordHash,omitempty" json:"-"` // never expose
	Role         Role          `bson:"role" json:"role"`
	DeletedAt    *time.Time    `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// IsActive reports whether the account can authenticate. A soft-deleted
// user stays in the collection for restore but is invisible everywhere else.
func (u *User) IsActive() bool {
	return u.DeletedAt == nil
}

type RefreshToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"userId"`
	Token     string        `bson:"token"`
	ExpiresAt time.Time     `bson:"expiresAt"`
	CreatedAt time.Time     `bson:"createdAt"`
}
