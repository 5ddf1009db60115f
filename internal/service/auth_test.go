package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfmarkapp/shelfmark-server/internal/errors"
)

func TestRegister(t *testing.T) {
	env := setupTest(t)

	resp, err := env.auth.Register(t.Context(), RegisterRequest{
		Email:       "first@example.com",
		Password:    "a long enough password",
		DisplayName: "First",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.User.IsAdmin, "first account becomes admin")

	second, err := env.auth.Register(t.Context(), RegisterRequest{
		Email:    "second@example.com",
		Password: "a long enough password",
	})
	require.NoError(t, err)
	assert.False(t, second.User.IsAdmin)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := setupTest(t)
	registerUser(t, env, "dup@example.com")

	_, err := env.auth.Register(t.Context(), RegisterRequest{
		Email:    "DUP@example.com",
		Password: "a long enough password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	env := setupTest(t)

	_, err := env.auth.Register(t.Context(), RegisterRequest{
		Email:    "not-an-email",
		Password: "a long enough password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.auth.Register(t.Context(), RegisterRequest{
		Email:    "short@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestLogin(t *testing.T) {
	env := setupTest(t)
	registerUser(t, env, "login@example.com")

	resp, err := env.auth.Login(t.Context(), LoginRequest{
		Email:    "login@example.com",
		Password: "a long enough password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	// Email lookup is case-insensitive.
	_, err = env.auth.Login(t.Context(), LoginRequest{
		Email:    "LOGIN@example.com",
		Password: "a long enough password",
	})
	assert.NoError(t, err)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := setupTest(t)
	registerUser(t, env, "login@example.com")

	_, err := env.auth.Login(t.Context(), LoginRequest{
		Email:    "login@example.com",
		Password: "wrong password entirely",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	// Unknown email produces the same error as a wrong password.
	_, err = env.auth.Login(t.Context(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "a long enough password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestVerifyAccessToken(t *testing.T) {
	env := setupTest(t)
	resp, err := env.auth.Register(t.Context(), RegisterRequest{
		Email:    "verify@example.com",
		Password: "a long enough password",
	})
	require.NoError(t, err)

	user, claims, err := env.auth.VerifyAccessToken(t.Context(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, _, err = env.auth.VerifyAccessToken(t.Context(), "not a token")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestRefreshTokens_Rotation(t *testing.T) {
	env := setupTest(t)
	resp, err := env.auth.Register(t.Context(), RegisterRequest{
		Email:    "refresh@example.com",
		Password: "a long enough password",
	})
	require.NoError(t, err)

	rotated, err := env.auth.RefreshTokens(t.Context(), RefreshRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, rotated.RefreshToken)

	// The original refresh token is spent.
	_, err = env.auth.RefreshTokens(t.Context(), RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	// The rotated one still works.
	_, err = env.auth.RefreshTokens(t.Context(), RefreshRequest{RefreshToken: rotated.RefreshToken})
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	env := setupTest(t)
	resp, err := env.auth.Register(t.Context(), RegisterRequest{
		Email:    "logout@example.com",
		Password: "a long enough password",
	})
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(t.Context(), resp.RefreshToken))

	_, err = env.auth.RefreshTokens(t.Context(), RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	// Logging out twice is fine.
	assert.NoError(t, env.auth.Logout(t.Context(), resp.RefreshToken))
}
