package auth

import (
	"context"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
)

// JWTService defines operations for managing JWT authentication tokens
// used by the administrative API and the operator CLI.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for subject with the given role.
	GenerateToken(ctx context.Context, subject string, role domain.Role) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrWrongTokenType or ErrInvalidToken
	// when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// Subject identifies the user (or operator) the token was issued for.
	Subject string `json:"sub,omitempty"`

	// Role grants access to role-restricted routes.
	Role domain.Role `json:"role,omitempty"`

	// TokenType indicates the purpose of the token. Only "access" is issued.
	TokenType string `json:"type,omitempty"`

	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// Principal converts the claims into the acting principal.
func (c *Claims) Principal() domain.Principal {
	return domain.UserPrincipal(c.Subject, c.Role)
}
