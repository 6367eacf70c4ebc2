package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/service"
)

// ErrorHandler fiber 统一错误处理. 功能受限转为 403
func ErrorHandler(c *fiber.Ctx, err error) error {
	var denied *license.AccessDeniedError
	if errors.As(err, &denied) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   denied.Message,
			"feature": denied.Feature,
			"state":   denied.State,
		})
	}

	if errors.Is(err, service.ErrOrganizationNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
		})
	}

	zap.L().Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func invalidInput(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid input",
	})
}

func validationFailed(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"fields": fields,
	})
}
