package service

import (
	"testing"
	"time"

	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthServiceTest(t *testing.T) AuthService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	return NewAuthService(userRepo, "test-secret", 15*time.Minute, 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	authService := setupAuthServiceTest(t)

	user, tokens, err := authService.Register("new@example.com", "password123", "New User", "+254700000001")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Register("dup@example.com", "password123", "First", "")
	require.NoError(t, err)

	_, _, err = authService.Register("dup@example.com", "password456", "Second", "")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Register("login@example.com", "password123", "Login User", "")
	require.NoError(t, err)

	user, tokens, err := authService.Login("login@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "login@example.com", user.Email)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Register("login@example.com", "password123", "Login User", "")
	require.NoError(t, err)

	_, _, err = authService.Login("login@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = authService.Login("ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_GetUserByID(t *testing.T) {
	authService := setupAuthServiceTest(t)

	created, _, err := authService.Register("me@example.com", "password123", "Me", "")
	require.NoError(t, err)

	user, err := authService.GetUserByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, user.Email)

	_, err = authService.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
