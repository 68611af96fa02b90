package service

import (
	"context"
	"testing"
	"time"

	"voxgate/backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalVerifier_ValidToken(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	verifier := NewLocalVerifier(jwtService)

	token, err := jwtService.GenerateToken("user-1", jwt.RoleUser)
	require.NoError(t, err)

	identity, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, RoleUser, identity.Role)
}

func TestLocalVerifier_AdminRole(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	verifier := NewLocalVerifier(jwtService)

	token, err := jwtService.GenerateToken("admin-1", jwt.RoleAdmin)
	require.NoError(t, err)

	identity, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, identity.Role)
}

func TestLocalVerifier_InvalidToken(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	verifier := NewLocalVerifier(jwtService)

	_, err := verifier.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLocalVerifier_EmptyToken(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	verifier := NewLocalVerifier(jwtService)

	_, err := verifier.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// fakeVerifier is an in-memory Verifier substitute, exercised below. The
// gateway package tests define their own equivalent.
type fakeVerifier struct {
	identities map[string]Identity
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{identities: make(map[string]Identity)}
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (Identity, error) {
	identity, ok := f.identities[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return identity, nil
}

func TestFakeVerifier_RoundTrip(t *testing.T) {
	fake := newFakeVerifier()
	fake.identities["tok-a"] = Identity{UserID: "a", Role: RoleUser}

	identity, err := fake.Verify(context.Background(), "tok-a")
	require.NoError(t, err)
	assert.Equal(t, "a", identity.UserID)

	_, err = fake.Verify(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
