package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clinic/internal/apperrors"
	"clinic/internal/config"
	"clinic/internal/models"
	"clinic/internal/repositories"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// AuthService hashes passwords, verifies credentials, and issues and resolves
// bearer tokens.
type AuthService struct {
	userRepo   repositories.UserRepository
	denylist   repositories.TokenDenylist
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	dummyHash  []byte
	compare    func(hash, plain []byte) error
	log        *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, denylist repositories.TokenDenylist, cfg config.AuthConfig, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// Only an out-of-range cost fails, and the config rejects those.
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	return &AuthService{
		userRepo:   userRepo,
		denylist:   denylist,
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   ttl,
		bcryptCost: cost,
		dummyHash:  dummyHash,
		compare:    bcrypt.CompareHashAndPassword,
		log:        log,
		now:        time.Now,
	}
}

// HashPassword returns the bcrypt hash of plain.
func (s *AuthService) HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns the user whose email and password match, or nil when none does.
func (s *AuthService) Verify(ctx context.Context, email, plain string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperrors.Storage("failed to look up user", err)
	}
	if user == nil {
		// Unknown emails still pay for one comparison so timing does not reveal them.
		_ = s.compare(s.dummyHash, []byte(plain))
		return nil, nil
	}
	if err := s.compare([]byte(user.Password), []byte(plain)); err != nil {
		return nil, nil
	}
	return user, nil
}

// IssueToken signs a token for user that expires after the configured TTL.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Email:  user.Email,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ParseToken validates the signature and expiry of tokenString.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ResolveToken maps a bearer token to its user. Bad, expired or revoked tokens,
// and tokens whose user no longer exists, are auth failures.
func (s *AuthService) ResolveToken(ctx context.Context, tokenString string) (*models.User, *Claims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		s.log.Debug("token rejected", zap.Error(err))
		return nil, nil, apperrors.Auth("Invalid or expired token")
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, nil, apperrors.Storage("failed to check token revocation", err)
	}
	if revoked {
		return nil, nil, apperrors.Auth("Token has been revoked")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, apperrors.Storage("failed to look up token owner", err)
	}
	if user == nil {
		return nil, nil, apperrors.Auth("Invalid or expired token")
	}
	return user, claims, nil
}

// Revoke invalidates the token described by claims for the rest of its lifetime.
func (s *AuthService) Revoke(ctx context.Context, claims *Claims) error {
	ttl := time.Unix(claims.ExpiresAt, 0).Sub(s.now())
	if err := s.denylist.Revoke(ctx, claims.Id, ttl); err != nil {
		return apperrors.Storage("failed to revoke token", err)
	}
	return nil
}

// Register creates a user with a hashed password. A taken email is a validation failure.
func (s *AuthService) Register(ctx context.Context, input models.RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Storage("failed to look up user", err)
	}
	if existing != nil {
		return nil, emailTaken()
	}

	hashed, err := s.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     input.Name,
		Email:    email,
		Password: hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, emailTaken()
		}
		return nil, apperrors.Storage("failed to register user", err)
	}
	return user, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, input models.LoginInput) (*models.User, string, error) {
	user, err := s.Verify(ctx, input.Email, input.Password)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperrors.Auth("Invalid credentials")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func emailTaken() error {
	return apperrors.Validation("Validation failed", map[string]string{"email": "has already been taken"})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
