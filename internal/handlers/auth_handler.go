package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"clinic/internal/middleware"
	"clinic/internal/models"
	"clinic/internal/services"
	"clinic/internal/validation"
)

// AuthHandler handles HTTP requests for accounts and tokens.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validation.Validator
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, validate *validation.Validator, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		validate:    validate,
		log:         log,
	}
}

// RegisterRoutes registers the account routes. limiter guards register and
// login; auth guards the routes that act on the caller's token. A nil limiter
// is skipped.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, limiter, auth fiber.Handler) {
	public := []fiber.Handler{}
	if limiter != nil {
		public = append(public, limiter)
	}
	router.Post("/register", append(public, h.HandleRegister)...)
	router.Post("/login", append(public, h.HandleLogin)...)
	router.Get("/user", auth, h.HandleCurrentUser)
	router.Post("/logout", auth, h.HandleLogout)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var input models.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		h.log.Debug("invalid register body", zap.Error(err))
		return invalidBody(c)
	}
	if fields := h.validate.Struct(input); fields != nil {
		return validationFailed(c, fields)
	}

	user, err := h.authService.Register(c.UserContext(), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return respond(c, fiber.StatusCreated, user, "Created")
}

// HandleLogin verifies credentials and issues a token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var input models.LoginInput
	if err := c.BodyParser(&input); err != nil {
		h.log.Debug("invalid login body", zap.Error(err))
		return invalidBody(c)
	}
	if fields := h.validate.Struct(input); fields != nil {
		return validationFailed(c, fields)
	}

	user, token, err := h.authService.Login(c.UserContext(), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// HandleCurrentUser returns the user the request's token belongs to.
func (h *AuthHandler) HandleCurrentUser(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, middleware.CurrentUser(c), "Found")
}

// HandleLogout revokes the request's token.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Unauthenticated",
		})
	}
	if err := h.authService.Revoke(c.UserContext(), claims); err != nil {
		return writeError(c, h.log, err)
	}
	return respond(c, fiber.StatusOK, nil, "Logged out")
}
