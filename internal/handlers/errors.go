package handlers

import (
	"github.com/gofiber/fiber/v2"

	"realestate/internal/services"
	"realestate/internal/validation"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation: fiber.StatusBadRequest,
	services.KindNotFound:   fiber.StatusNotFound,
	services.KindAuth:       fiber.StatusUnauthorized,
	services.KindStore:      fiber.StatusInternalServerError,
	services.KindInternal:   fiber.StatusInternalServerError,
}

// respondError writes a service failure as {"message", "error"}. Validation
// failures also carry "errors", one message per failing field.
func respondError(c *fiber.Ctx, message string, err error) error {
	serr, ok := services.AsError(err)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": message,
			"error":   "An unexpected error occurred.",
		})
	}
	body := fiber.Map{
		"message": message,
		"error":   serr.Message,
	}
	if serr.Kind == services.KindValidation {
		if fields := validation.FieldMessages(serr.Err); len(fields) > 0 {
			body["errors"] = fields
		}
	}
	return c.Status(kindStatus[serr.Kind]).JSON(body)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
