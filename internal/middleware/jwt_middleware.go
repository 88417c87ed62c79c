package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"clinic/internal/apperrors"
	"clinic/internal/models"
	"clinic/internal/services"
)

const (
	localsUser   = "user"
	localsClaims = "claims"
)

// TokenResolver maps a bearer token to the user it was issued for.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, *services.Claims, error)
}

// AuthRequired is a Fiber middleware that resolves the bearer token to a user and
// stores it, with the token claims, for subsequent handlers.
func AuthRequired(resolver TokenResolver, log *zap.Logger) fiber.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Unauthenticated",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) || strings.TrimSpace(parts[1]) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		user, claims, err := resolver.ResolveToken(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			appErr, ok := apperrors.As(err)
			if ok && appErr.Kind == apperrors.KindAuth {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": appErr.Message,
				})
			}
			log.Error("token resolution failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		c.Locals(localsUser, user)
		c.Locals(localsClaims, claims)
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localsUser).(*models.User)
	return user
}

// CurrentClaims returns the token claims stored by AuthRequired, or nil.
func CurrentClaims(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(localsClaims).(*services.Claims)
	return claims
}
