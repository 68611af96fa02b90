package service

import (
	"context"

	"voxgate/backend/pkg/jwt"
)

// LocalVerifier validates a locally-minted HS256 bearer token. It backs
// development and test environments where no external identity provider
// is configured.
type LocalVerifier struct {
	jwtService *jwt.Service
}

// NewLocalVerifier creates a LocalVerifier around a JWT service.
func NewLocalVerifier(jwtService *jwt.Service) *LocalVerifier {
	return &LocalVerifier{jwtService: jwtService}
}

// Verify implements Verifier.
func (v *LocalVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims, err := v.jwtService.ValidateToken(token)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	role := RoleUser
	if claims.Role == jwt.RoleAdmin {
		role = RoleAdmin
	}

	return Identity{UserID: claims.UserID, Role: role}, nil
}
