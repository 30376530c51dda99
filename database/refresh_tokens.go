package database

import (
	"context"
	"errors"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"github.com/dmarquez/tasknestbackend/tokens"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// RefreshTokenStore is the persistence behind session liveness: the
// presence of a non-expired row is the canonical "session alive" signal.
type RefreshTokenStore struct{}

var _ tokens.Store = (*RefreshTokenStore)(nil)

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{}
}

func (s *RefreshTokenStore) col() *mongo.Collection {
	return OpenCollection("refresh_tokens")
}

func (s *RefreshTokenStore) Create(ctx context.Context, rt *models.RefreshToken) error {
	if rt.ID.IsZero() {
		rt.ID = bson.NewObjectID()
	}
	_, err := s.col().InsertOne(ctx, rt)
	return err
}

func (s *RefreshTokenStore) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.col().FindOne(ctx, bson.M{"token": token}).Decode(&rt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, tokens.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// DeleteByToken is idempotent; deleting an already-deleted row is a no-op,
// which keeps the check-then-delete on expired tokens race-free.
func (s *RefreshTokenStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.col().DeleteOne(ctx, bson.M{"token": token})
	return err
}

func (s *RefreshTokenStore) DeleteAllForUser(ctx context.Context, userID bson.ObjectID) error {
	_, err := s.col().DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

func (s *RefreshTokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.col().DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *RefreshTokenStore) CountLiveForUser(ctx context.Context, userID bson.ObjectID) (int64, error) {
	return s.col().CountDocuments(ctx, bson.M{
		"userId":    userID,
		"expiresAt": bson.M{"$gt": time.Now().UTC()},
	})
}
