package auth

import (
	"context"

	"github.com/phrazzld/tasks-api/internal/domain"
)

// MockJWTService is a function-field implementation of JWTService for tests.
type MockJWTService struct {
	GenerateTokenFunc func(ctx context.Context, subject string, role domain.Role) (string, error)
	ValidateTokenFunc func(ctx context.Context, tokenString string) (*Claims, error)
}

var _ JWTService = (*MockJWTService)(nil)

// GenerateToken implements JWTService.
func (m *MockJWTService) GenerateToken(ctx context.Context, subject string, role domain.Role) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(ctx, subject, role)
	}
	return "mock-token-" + subject, nil
}

// ValidateToken implements JWTService.
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, tokenString)
	}
	return nil, ErrInvalidToken
}
