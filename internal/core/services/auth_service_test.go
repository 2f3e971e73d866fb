package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-dashboard/internal/core/domain"
	"github.com/comitanigiacomo/kanso-dashboard/internal/core/services"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Success: Password hashed", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := services.NewAuthService(repo, new(MockTokenIssuer))
		repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

		user, err := svc.Register(ctx, services.RegisterInput{Email: "Ada@Example.com", Password: "correct-horse"})

		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.NotEqual(t, "correct-horse", user.PasswordHash)
		assert.NoError(t, user.CheckPassword("correct-horse"))
		repo.AssertExpectations(t)
	})

	t.Run("Fail: Invalid email", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := services.NewAuthService(repo, new(MockTokenIssuer))

		_, err := svc.Register(ctx, services.RegisterInput{Email: "not-an-email", Password: "correct-horse"})

		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Fail: Short password", func(t *testing.T) {
		svc := services.NewAuthService(new(MockUserRepo), new(MockTokenIssuer))

		_, err := svc.Register(ctx, services.RegisterInput{Email: "ada@example.com", Password: "short"})

		assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
	})

	t.Run("Fail: Email taken", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := services.NewAuthService(repo, new(MockTokenIssuer))
		repo.On("Create", ctx, mock.Anything).Return(domain.ErrEmailAlreadyExists)

		_, err := svc.Register(ctx, services.RegisterInput{Email: "ada@example.com", Password: "correct-horse"})

		assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	user, err := domain.NewUser("user-1", "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, user.SetPassword("correct-horse"))

	t.Run("Success: Token issued", func(t *testing.T) {
		repo := new(MockUserRepo)
		tokens := new(MockTokenIssuer)
		svc := services.NewAuthService(repo, tokens)
		repo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
		tokens.On("GenerateToken", "user-1").Return("signed.jwt.token", nil)

		res, err := svc.Login(ctx, services.LoginInput{Email: "  ADA@example.com ", Password: "correct-horse"})

		require.NoError(t, err)
		assert.Equal(t, "signed.jwt.token", res.Token)
		assert.Equal(t, "user-1", res.User.ID)
		tokens.AssertExpectations(t)
	})

	t.Run("Fail: Wrong password", func(t *testing.T) {
		repo := new(MockUserRepo)
		tokens := new(MockTokenIssuer)
		svc := services.NewAuthService(repo, tokens)
		repo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)

		_, err := svc.Login(ctx, services.LoginInput{Email: "ada@example.com", Password: "battery-staple"})

		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		tokens.AssertNotCalled(t, "GenerateToken", mock.Anything)
	})

	t.Run("Fail: Unknown email looks like a bad password", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := services.NewAuthService(repo, new(MockTokenIssuer))
		repo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, domain.ErrUserNotFound)

		_, err := svc.Login(ctx, services.LoginInput{Email: "nobody@example.com", Password: "correct-horse"})

		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("Error: Storage failure is not masked", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := services.NewAuthService(repo, new(MockTokenIssuer))
		repo.On("GetByEmail", ctx, "ada@example.com").Return(nil, errors.New("db down"))

		_, err := svc.Login(ctx, services.LoginInput{Email: "ada@example.com", Password: "correct-horse"})

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("Error: Signing failure", func(t *testing.T) {
		repo := new(MockUserRepo)
		tokens := new(MockTokenIssuer)
		svc := services.NewAuthService(repo, tokens)
		repo.On("GetByEmail", ctx, "ada@example.com").Return(user, nil)
		tokens.On("GenerateToken", "user-1").Return("", errors.New("no key"))

		_, err := svc.Login(ctx, services.LoginInput{Email: "ada@example.com", Password: "correct-horse"})

		assert.Error(t, err)
	})
}
