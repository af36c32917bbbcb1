package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v4"
)

const defaultRefreshTimeoutInMinutes = 2

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrMissingTenantID   = errors.New("token has no tenant binding")
	ErrInvalidSigningKey = errors.New("invalid signing key")
)

type JWTManager interface {
	GenerateToken(ctx context.Context, user *User, tenantID string, expiresAt time.Time) (string, error)
	RefreshToken(ctx context.Context, token string, expiresAt time.Time) (string, error)
	ValidateToken(ctx context.Context, token string) (bool, error)
	GetUserFromToken(ctx context.Context, token string) (*User, error)
	GetTenantIDFromToken(ctx context.Context, token string) (string, error)
}

type claims struct {
	User *User `json:"user"`
	// ClientID binds the token to the tenant it was issued for.
	ClientID string `json:"client_id"`
	jwtgo.RegisteredClaims
}

// defaultJWTManager signs and verifies tokens with a shared HMAC secret.
type defaultJWTManager struct {
	secret []byte
}

func (m *defaultJWTManager) parseToken(tokenString string) (*jwtgo.Token, *claims, error) {
	c := &claims{}
	token, err := jwtgo.ParseWithClaims(tokenString, c, func(t *jwtgo.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtgo.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		vErr, ok := err.(*jwtgo.ValidationError)
		if !ok {
			return nil, nil, fmt.Errorf("parsing token: %w", err)
		}

		if vErr.Errors == jwtgo.ValidationErrorUnverifiable {
			return nil, nil, fmt.Errorf("invalid key: %w", err)
		}

		return nil, nil, ErrInvalidToken
	}

	return token, c, nil
}

func (m *defaultJWTManager) GenerateToken(ctx context.Context, user *User, tenantID string, expiresAt time.Time) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrInvalidSigningKey
	}

	c := &claims{
		User:     user,
		ClientID: tenantID,
		RegisteredClaims: jwtgo.RegisteredClaims{
			ExpiresAt: jwtgo.NewNumericDate(expiresAt),
			IssuedAt:  jwtgo.NewNumericDate(time.Now()),
		},
	}
	if user != nil {
		c.Subject = user.ID
	}

	token := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, c)

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return tokenString, nil
}

func (m *defaultJWTManager) RefreshToken(ctx context.Context, tokenString string, expiresAt time.Time) (string, error) {
	_, c, err := m.parseToken(tokenString)
	if err != nil {
		return "", fmt.Errorf("parsing token to be refreshed: %w", err)
	}

	// We only generate new tokens when enough time
	// is elapsed.
	if time.Until(c.ExpiresAt.Time) > defaultRefreshTimeoutInMinutes*time.Minute {
		return tokenString, nil
	}

	tokenString, err = m.GenerateToken(ctx, c.User, c.ClientID, expiresAt)
	if err != nil {
		return "", fmt.Errorf("generating new refreshed token: %w", err)
	}

	return tokenString, nil
}

func (m *defaultJWTManager) ValidateToken(ctx context.Context, tokenString string) (bool, error) {
	token, _, err := m.parseToken(tokenString)
	if errors.Is(err, ErrInvalidToken) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("parsing token to be validated: %w", err)
	}

	return token.Valid, nil
}

func (m *defaultJWTManager) GetUserFromToken(ctx context.Context, tokenString string) (*User, error) {
	_, c, err := m.parseToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("parsing token to be validated: %w", err)
	}

	return c.User, nil
}

// GetTenantIDFromToken returns the tenant the token is bound to. Tokens
// without a client_id claim are rejected so an unbound token can never reach
// tenant data.
func (m *defaultJWTManager) GetTenantIDFromToken(ctx context.Context, tokenString string) (string, error) {
	_, c, err := m.parseToken(tokenString)
	if err != nil {
		return "", fmt.Errorf("parsing token to be validated: %w", err)
	}
	if c.ClientID == "" {
		return "", ErrMissingTenantID
	}

	return c.ClientID, nil
}

func NewJWTManager(secret string) JWTManager {
	return &defaultJWTManager{secret: []byte(secret)}
}

// Ensuring that defaultJWTManager is implementing JWTManager interface
var _ JWTManager = (*defaultJWTManager)(nil)
