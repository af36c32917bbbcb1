package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_JWTManager_GenerateToken_and_GetUserFromToken(t *testing.T) {
	jwtManager := NewJWTManager("secret")
	ctx := context.Background()

	user := &User{ID: "user-1", Email: "owner@acme.com", Roles: []string{RoleAdmin}}
	token, err := jwtManager.GenerateToken(ctx, user, "tenant-abc", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	gotUser, err := jwtManager.GetUserFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user, gotUser)

	tenantID, err := jwtManager.GetTenantIDFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-abc", tenantID)
}

func Test_JWTManager_GenerateToken_emptySecret(t *testing.T) {
	jwtManager := NewJWTManager("")
	_, err := jwtManager.GenerateToken(context.Background(), &User{ID: "user-1"}, "tenant-abc", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidSigningKey)
}

func Test_JWTManager_ValidateToken(t *testing.T) {
	jwtManager := NewJWTManager("secret")
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		token, err := jwtManager.GenerateToken(ctx, &User{ID: "user-1"}, "tenant-abc", time.Now().Add(time.Hour))
		require.NoError(t, err)

		valid, err := jwtManager.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := jwtManager.GenerateToken(ctx, &User{ID: "user-1"}, "tenant-abc", time.Now().Add(-time.Minute))
		require.NoError(t, err)

		valid, err := jwtManager.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("token signed with a different secret", func(t *testing.T) {
		otherManager := NewJWTManager("other-secret")
		token, err := otherManager.GenerateToken(ctx, &User{ID: "user-1"}, "tenant-abc", time.Now().Add(time.Hour))
		require.NoError(t, err)

		valid, err := jwtManager.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("garbage token", func(t *testing.T) {
		valid, err := jwtManager.ValidateToken(ctx, "not.a.token")
		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func Test_JWTManager_GetTenantIDFromToken_missingBinding(t *testing.T) {
	jwtManager := NewJWTManager("secret")
	ctx := context.Background()

	token, err := jwtManager.GenerateToken(ctx, &User{ID: "user-1"}, "", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = jwtManager.GetTenantIDFromToken(ctx, token)
	assert.ErrorIs(t, err, ErrMissingTenantID)
}

func Test_JWTManager_RefreshToken(t *testing.T) {
	jwtManager := NewJWTManager("secret")
	ctx := context.Background()

	t.Run("token far from expiry is returned unchanged", func(t *testing.T) {
		token, err := jwtManager.GenerateToken(ctx, &User{ID: "user-1"}, "tenant-abc", time.Now().Add(time.Hour))
		require.NoError(t, err)

		refreshed, err := jwtManager.RefreshToken(ctx, token, time.Now().Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, token, refreshed)
	})

	t.Run("token close to expiry keeps its tenant binding", func(t *testing.T) {
		token, err := jwtManager.GenerateToken(ctx, &User{ID: "user-1"}, "tenant-abc", time.Now().Add(time.Minute))
		require.NoError(t, err)

		refreshed, err := jwtManager.RefreshToken(ctx, token, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.NotEqual(t, token, refreshed)

		tenantID, err := jwtManager.GetTenantIDFromToken(ctx, refreshed)
		require.NoError(t, err)
		assert.Equal(t, "tenant-abc", tenantID)
	})
}
