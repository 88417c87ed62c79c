package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"clinic/internal/apperrors"
)

// Envelope is the body of every successful resource response.
type Envelope struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

func respond(c *fiber.Ctx, status int, data interface{}, message string) error {
	return c.Status(status).JSON(Envelope{Data: data, Message: message})
}

func validationFailed(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  fields,
	})
}

// writeError renders err by kind. Storage and unknown errors are logged and the
// client only sees a generic message.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = &apperrors.Error{Kind: apperrors.KindUnknown, Err: err}
	}

	switch appErr.Kind {
	case apperrors.KindValidation:
		return validationFailed(c, appErr.Fields)
	case apperrors.KindNotFound:
		return respond(c, fiber.StatusNotFound, nil, appErr.Message)
	case apperrors.KindAuth:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": appErr.Message,
		})
	}

	log.Error("request failed",
		zap.String("method", utils.CopyString(c.Method())),
		zap.String("path", utils.CopyString(c.Path())),
		zap.String("kind", appErr.Kind.String()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
