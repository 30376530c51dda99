package database

import (
	"context"
	"errors"

	"github.com/dmarquez/tasknestbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore reads user records. It satisfies tokens.UserSource and the
// scheduler's user lookup.
type UserStore struct{}

func NewUserStore() *UserStore {
	return &UserStore{}
}

func (s *UserStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var user models.User
	err := OpenCollection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActiveByEmail skips soft-deleted accounts; a deactivated user cannot
// authenticate until restored.
func (s *UserStore) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := OpenCollection("users").FindOne(ctx, bson.M{
		"email":     email,
		"deletedAt": bson.M{"$exists": false},
	}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
