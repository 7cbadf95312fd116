package httputil

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// WriteError writes a JSON {"error": msg} body with the given status.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}
