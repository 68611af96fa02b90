package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role represents an identity's role, per the gateway's two-role model.
type Role string

// Role constants. The gateway recognises exactly these two.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Common errors
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrInvalidSigningKey = errors.New("invalid signing key")
	ErrTokenEmpty        = errors.New("token is empty")
	ErrInvalidClaims     = errors.New("invalid token claims")
)

// JWTClaims holds the claims minted for a locally-authenticated identity.
type JWTClaims struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Service mints and validates HS256 tokens for the local development/test
// identity path (identity.LocalVerifier).
type Service struct {
	secretKey   []byte
	tokenExpiry time.Duration
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if secretKey == "" {
		secretKey = getSecretKey()
	}

	if expiry == 0 {
		expiry = 24 * time.Hour
	}

	return &Service{
		secretKey:   []byte(secretKey),
		tokenExpiry: expiry,
	}
}

// getSecretKey is a utility function used when no secret key is provided
func getSecretKey() string {
	// Default secret key for development environments - do not use in production
	return "voxgate-development-secret-key"
}

// GenerateToken creates a new JWT token for a gateway identity.
func (s *Service) GenerateToken(userID string, role Role) (string, error) {
	claims := JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "voxgate",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenEmpty
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSigningKey, token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// HasRole checks if a user has a specific role
func (c *JWTClaims) HasRole(role Role) bool {
	return c.Role == role
}
