package auth

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type JWTManagerMock struct {
	mock.Mock
}

func (m *JWTManagerMock) GenerateToken(ctx context.Context, user *User, tenantID string, expiresAt time.Time) (string, error) {
	args := m.Called(ctx, user, tenantID, expiresAt)
	return args.String(0), args.Error(1)
}

func (m *JWTManagerMock) RefreshToken(ctx context.Context, token string, expiresAt time.Time) (string, error) {
	args := m.Called(ctx, token, expiresAt)
	return args.String(0), args.Error(1)
}

func (m *JWTManagerMock) ValidateToken(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *JWTManagerMock) GetUserFromToken(ctx context.Context, token string) (*User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *JWTManagerMock) GetTenantIDFromToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

var _ JWTManager = (*JWTManagerMock)(nil)
