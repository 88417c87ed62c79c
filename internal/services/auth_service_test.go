package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clinic/internal/apperrors"
	"clinic/internal/config"
	"clinic/internal/models"
	"clinic/internal/repositories"
	"clinic/internal/services"
)

const testJWTSecret = "test_jwt_secret"

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: testJWTSecret, TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, repositories.NewMockTokenDenylist(), testAuthConfig(), nil)

	input := models.RegisterInput{Name: "Ana", Email: "  Ana@Example.com ", Password: "password123"}

	mockRepo.On("GetByEmail", ctx, "ana@example.com").Return(nil, nil).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = 1
	}).Return(nil).Once()

	user, err := authService.Register(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, "password123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, repositories.NewMockTokenDenylist(), testAuthConfig(), nil)
	input := models.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "password123"}

	// Found by the pre-check.
	mockRepo.On("GetByEmail", ctx, "ana@example.com").Return(&models.User{ID: 1}, nil).Once()
	_, err := authService.Register(ctx, input)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, "has already been taken", appErr.Fields["email"])

	// Lost a race against a concurrent registration.
	mockRepo.On("GetByEmail", ctx, "ana@example.com").Return(nil, nil).Once()
	mockRepo.On("Create", ctx, mock.Anything).Return(fmt.Errorf("email ana@example.com: %w", repositories.ErrDuplicateKey)).Once()
	_, err = authService.Register(ctx, input)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	mockRepo.On("GetByEmail", ctx, "ana@example.com").Return(nil, errors.New("db down")).Once()
	_, err = authService.Register(ctx, input)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, repositories.NewMockTokenDenylist(), testAuthConfig(), nil)

	user := &models.User{ID: 7, Name: "Ana", Email: "ana@example.com", Password: hashed(t, "password123")}

	mockRepo.On("GetByEmail", ctx, "ana@example.com").Return(user, nil).Once()
	got, token, err := authService.Login(ctx, models.LoginInput{Email: "ana@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &services.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(*services.Claims)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.Id)

	// Wrong password.
	mockRepo.On("GetByEmail", ctx, "ana@example.com").Return(user, nil).Once()
	_, token, err = authService.Login(ctx, models.LoginInput{Email: "ana@example.com", Password: "wrong"})
	assert.Empty(t, token)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindAuth, appErr.Kind)
	assert.Equal(t, "Invalid credentials", appErr.Message)

	// Unknown user.
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, nil).Once()
	_, _, err = authService.Login(ctx, models.LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Verify_UnknownEmailStillCompares(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, repositories.NewMockTokenDenylist(), testAuthConfig(), nil)

	var compared [][]byte
	services.SetCompare(authService, func(hash, plain []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, plain)
	})

	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, nil).Once()
	user, err := authService.Verify(ctx, "nobody@example.com", "password123")
	require.NoError(t, err)
	assert.Nil(t, user)
	require.Len(t, compared, 1)
	cost, err := bcrypt.Cost(compared[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	known := &models.User{ID: 7, Email: "ana@example.com", Password: hashed(t, "password123")}
	mockRepo.On("GetByEmail", ctx, "ana@example.com").Return(known, nil).Once()
	user, err = authService.Verify(ctx, "ana@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, known, user)
	require.Len(t, compared, 2)
	assert.Equal(t, []byte(known.Password), compared[1])
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ResolveToken(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, repositories.NewMockTokenDenylist(), testAuthConfig(), nil)

	user := &models.User{ID: 7, Email: "ana@example.com"}
	token, err := authService.IssueToken(user)
	require.NoError(t, err)

	mockRepo.On("GetByID", ctx, uint(7)).Return(user, nil).Once()
	resolved, claims, err := authService.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user, resolved)
	assert.Equal(t, "ana@example.com", claims.Email)

	// The user was deleted after the token was issued.
	mockRepo.On("GetByID", ctx, uint(7)).Return(nil, nil).Once()
	_, _, err = authService.ResolveToken(ctx, token)
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))

	_, _, err = authService.ResolveToken(ctx, "invalid.token.string")
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ParseToken_RejectsExpiredAndForeign(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), repositories.NewMockTokenDenylist(), testAuthConfig(), nil)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, services.Claims{
		UserID:         7,
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Hour).Unix()},
	})
	expiredString, err := expired.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = authService.ParseToken(expiredString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, services.Claims{
		UserID:         7,
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})
	foreignString, err := foreign.SignedString([]byte("some_other_secret"))
	require.NoError(t, err)
	_, err = authService.ParseToken(foreignString)
	assert.Error(t, err)
}

func TestAuthService_Revoke(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, repositories.NewMockTokenDenylist(), testAuthConfig(), nil)

	user := &models.User{ID: 7, Email: "ana@example.com"}
	token, err := authService.IssueToken(user)
	require.NoError(t, err)

	mockRepo.On("GetByID", ctx, uint(7)).Return(user, nil).Once()
	_, claims, err := authService.ResolveToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, authService.Revoke(ctx, claims))

	_, _, err = authService.ResolveToken(ctx, token)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindAuth, appErr.Kind)
	assert.Equal(t, "Token has been revoked", appErr.Message)
	mockRepo.AssertExpectations(t)
}
