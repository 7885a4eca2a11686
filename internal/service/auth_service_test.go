package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendou/agenda-backend/internal/config"
	"github.com/agendou/agenda-backend/internal/repository"
)

func newAuthService() (AuthService, *repository.Repositories) {
	repos := repository.NewMemoryRepositories()
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: 1, RefreshExpiry: 1}
	return NewAuthService(cfg, repos.UserRepo), repos
}

func TestAuthRegisterAndLogin(t *testing.T) {
	auth, _ := newAuthService()
	ctx := context.Background()

	user, access, refresh, err := auth.Register(ctx, "Jane Doe", "Jane@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.NotEqual(t, "password123", user.Password)

	t.Run("token carries the user id", func(t *testing.T) {
		token, err := auth.ValidateToken(access)
		require.NoError(t, err)
		id, err := auth.GetUserIDFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, id)
	})

	t.Run("login with wrong password fails", func(t *testing.T) {
		_, _, _, err := auth.Login(ctx, "jane@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("login is case insensitive on email", func(t *testing.T) {
		_, _, _, err := auth.Login(ctx, "JANE@example.com", "password123")
		require.NoError(t, err)
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		_, _, _, err := auth.Register(ctx, "Jane Again", "jane@example.com", "password456")
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, _, _, err := auth.Register(ctx, "Short", "short@example.com", "1234567")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAuthRefreshRotation(t *testing.T) {
	auth, _ := newAuthService()
	ctx := context.Background()

	_, _, refresh, err := auth.Register(ctx, "Jane Doe", "jane@example.com", "password123")
	require.NoError(t, err)

	access2, refresh2, err := auth.RefreshToken(ctx, refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access2)
	assert.NotEqual(t, refresh, refresh2)

	// The old refresh token is burned.
	_, _, err = auth.RefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, auth.Logout(ctx, refresh2))
	_, _, err = auth.RefreshToken(ctx, refresh2)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthChangePassword(t *testing.T) {
	auth, repos := newAuthService()
	ctx := context.Background()

	user, _, refresh, err := auth.Register(ctx, "Jane Doe", "jane@example.com", "password123")
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := auth.ChangePassword(ctx, user.ID, "nope", "newpassword1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("change succeeds and clears must_change flag", func(t *testing.T) {
		require.NoError(t, repos.UserRepo.UpdatePassword(ctx, user.ID, user.Password, true))

		err := auth.ChangePassword(ctx, user.ID, "password123", "newpassword1")
		require.NoError(t, err)

		fresh, err := repos.UserRepo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, fresh.MustChangePassword)

		_, _, _, err = auth.Login(ctx, "jane@example.com", "newpassword1")
		require.NoError(t, err)
		_, _, _, err = auth.Login(ctx, "jane@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("existing refresh tokens are revoked", func(t *testing.T) {
		_, _, err := auth.RefreshToken(ctx, refresh)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
