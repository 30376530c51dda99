package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "utils-test-secret")

	token, err := GenerateAccessToken("user-1", "u@example.com", "USER", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "USER", claims.Role)
}

func TestAccessTokenExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "utils-test-secret")

	token, err := GenerateAccessToken("user-1", "u@example.com", "USER", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	token, err := GenerateAccessToken("user-1", "u@example.com", "USER", time.Minute)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "second-secret")
	_, err = ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestRefreshAndAccessSecretsAreIndependent(t *testing.T) {
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")

	refresh, err := GenerateRefreshToken("user-1", time.Hour)
	require.NoError(t, err)

	_, err = ValidateRefreshToken(refresh)
	assert.NoError(t, err)

	// A refresh token must never pass as an access token.
	_, err = ValidateAccessToken(refresh)
	assert.Error(t, err)
}

func TestTTLDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "")
	assert.Equal(t, 15*time.Minute, AccessTTL())
	assert.Equal(t, 7*24*time.Hour, RefreshTTL())

	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "30")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "14")
	assert.Equal(t, 30*time.Minute, AccessTTL())
	assert.Equal(t, 14*24*time.Hour, RefreshTTL())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-enough")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "s3cret-enough"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Work", "work"},
		{"Déjà Vu", "deja-vu"},
		{"  Errands & Chores  ", "errands-chores"},
		{"Q3 / Planning", "q3-planning"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateSlug(tt.in))
	}
}

func TestIsDuplicateKey(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	assert.True(t, IsDuplicateKey(dup))

	other := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 121}}}
	assert.False(t, IsDuplicateKey(other))

	assert.True(t, IsDuplicateKey(errors.New(`E11000 duplicate key error collection: app.users`)))
	assert.False(t, IsDuplicateKey(errors.New("connection reset")))
}
