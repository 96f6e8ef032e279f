package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/repository"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	return m.Called(ctx, id, hash, at).Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockUserRepository) ListByRoles(ctx context.Context, roles []domain.Role) ([]domain.User, error) {
	args := m.Called(ctx, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func newProtectedApp(mw *auth.AuthMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
	}})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		return c.SendString(user.ID)
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestAuthMiddleware_LoadsActiveUser(t *testing.T) {
	// Arrange
	tokens := auth.NewTokenManager("secret", 10)
	users := new(MockUserRepository)
	users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Role: domain.RoleCustomer, IsActive: true}, nil)
	app := newProtectedApp(auth.NewAuthMiddleware(tokens, users))
	token, _, err := tokens.GenerateToken("u1", domain.RoleCustomer)
	require.NoError(t, err)

	// Act
	status, body := doRequest(t, app, "Bearer "+token)

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", body)
	users.AssertExpectations(t)
}

func TestAuthMiddleware_DeactivatedUserRejectedMidSession(t *testing.T) {
	tokens := auth.NewTokenManager("secret", 10)
	users := new(MockUserRepository)
	users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Role: domain.RoleAdmin, IsActive: false}, nil)
	app := newProtectedApp(auth.NewAuthMiddleware(tokens, users))
	token, _, err := tokens.GenerateToken("u1", domain.RoleAdmin)
	require.NoError(t, err)

	status, body := doRequest(t, app, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthenticated, body)
}

func TestAuthMiddleware_RejectsMissingOrMalformedCredentials(t *testing.T) {
	tokens := auth.NewTokenManager("secret", 10)
	users := new(MockUserRepository)
	app := newProtectedApp(auth.NewAuthMiddleware(tokens, users))

	for _, header := range []string{"", "Basic abc", "Bearer not-a-token"} {
		status, body := doRequest(t, app, header)
		assert.Equal(t, http.StatusUnauthorized, status, header)
		assert.Equal(t, apperrors.CodeUnauthenticated, body, header)
	}
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestAuthMiddleware_UnknownUser(t *testing.T) {
	tokens := auth.NewTokenManager("secret", 10)
	users := new(MockUserRepository)
	users.On("GetByID", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)
	app := newProtectedApp(auth.NewAuthMiddleware(tokens, users))
	token, _, _ := tokens.GenerateToken("ghost", domain.RoleCustomer)

	status, _ := doRequest(t, app, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthMiddleware_StoreFailureIsInternal(t *testing.T) {
	tokens := auth.NewTokenManager("secret", 10)
	users := new(MockUserRepository)
	users.On("GetByID", mock.Anything, "u1").Return(nil, errors.New("connection refused"))
	app := newProtectedApp(auth.NewAuthMiddleware(tokens, users))
	token, _, _ := tokens.GenerateToken("u1", domain.RoleCustomer)

	status, body := doRequest(t, app, "Bearer "+token)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, body)
}
