// Package tokens owns the session lifecycle: issuing access/refresh token
// pairs, rotating access tokens against the stored refresh token, and
// revoking sessions. The refresh-token row in the store is the canonical
// "is this session alive" signal; access tokens are only trusted for
// authenticity, never for liveness.
package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/dmarquez/tasknestbackend/models"
	"github.com/dmarquez/tasknestbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var ErrTokenNotFound = errors.New("refresh token not found")

// Store persists refresh tokens. FindByToken must return ErrTokenNotFound
// (or a wrapper of it) for missing rows.
type Store interface {
	Create(ctx context.Context, rt *models.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID bson.ObjectID) error
	DeleteExpired(ctx context.Context) (int64, error)
	CountLiveForUser(ctx context.Context, userID bson.ObjectID) (int64, error)
}

// UserSource resolves the owning user during rotation so the fresh access
// token carries the user's current role, not the role at login time.
type UserSource interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
}

type SessionTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"-"`
	ExpiresIn    int    `json:"expiresIn"`
}

type Service struct {
	store Store
	users UserSource
}

func NewService(store Store, users UserSource) *Service {
	return &Service{store: store, users: users}
}

// IssueSession mints an access/refresh pair for a verified user and
// persists the refresh-token row.
func (s *Service) IssueSession(ctx context.Context, user *models.User) (*SessionTokens, error) {
	accessTTL := utils.AccessTTL()

	access, err := utils.GenerateAccessToken(user.ID.Hex(), user.Email, string(user.Role), accessTTL)
	if err != nil {
		return nil, err
	}

	refreshTTL := utils.RefreshTTL()
	refresh, err := utils.GenerateRefreshToken(user.ID.Hex(), refreshTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.store.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	return &SessionTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(accessTTL.Seconds()),
	}, nil
}

// VerifyAccess checks signature and expiry of an access token and returns
// its claims. It does NOT check session liveness; that is the middleware's
// per-request store lookup.
func (s *Service) VerifyAccess(token string) (*utils.Claims, error) {
	claims, err := utils.ValidateAccessToken(token)
	if err != nil {
		return nil, utils.ErrInvalidToken
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a new access token. The refresh
// token itself stays valid until logout, revocation, or natural expiry.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (string, error) {
	row, err := s.store.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", utils.ErrRevokedSession
		}
		return "", err
	}

	now := time.Now().UTC()
	if _, err := utils.ValidateRefreshToken(refreshToken); err != nil || now.After(row.ExpiresAt) {
		// Stale row; drop it so the store doesn't accumulate dead sessions.
		_ = s.store.DeleteByToken(ctx, refreshToken)
		return "", utils.ErrExpiredSession
	}

	user, err := s.users.FindByID(ctx, row.UserID)
	if err != nil || !user.IsActive() {
		// Deactivated owners lose every session outright.
		_ = s.store.DeleteAllForUser(ctx, row.UserID)
		return "", utils.ErrRevokedSession
	}

	return utils.GenerateAccessToken(user.ID.Hex(), user.Email, string(user.Role), utils.AccessTTL())
}

// RevokeAll deletes every refresh token for a user: logout everywhere.
// Used on logout, password change, promotion, demotion, and deactivation.
func (s *Service) RevokeAll(ctx context.Context, userID bson.ObjectID) error {
	return s.store.DeleteAllForUser(ctx, userID)
}

// FindStored returns the persisted row for a refresh token, if any.
func (s *Service) FindStored(ctx context.Context, refreshToken string) (*models.RefreshToken, error) {
	return s.store.FindByToken(ctx, refreshToken)
}

// Revoke drops a single session by its refresh token value.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	return s.store.DeleteByToken(ctx, refreshToken)
}

// HasLiveSession reports whether any non-expired refresh token exists for
// the user. This is the per-request check that makes force-logout
// immediate instead of waiting out the access token's TTL.
func (s *Service) HasLiveSession(ctx context.Context, userID string) (bool, error) {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return false, err
	}
	n, err := s.store.CountLiveForUser(ctx, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SweepExpired garbage-collects expired refresh-token rows.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx)
}
