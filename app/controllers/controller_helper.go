package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// jsonSuccess writes the standard success envelope.
func jsonSuccess(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// jsonMessage writes a success envelope with a message instead of data.
func jsonMessage(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}

// jsonError writes the standard failure envelope. Messages here are
// user-visible; internal detail belongs in the server log.
func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
