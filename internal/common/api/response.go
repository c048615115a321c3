package api

import (
	"errors"

	"go-regula/internal/common/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse renders err as {"error": message} with the status mapped from
// its kind. Unclassified errors are reported as a generic 500.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
