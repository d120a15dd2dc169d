package models

import "github.com/gofiber/fiber/v2"

// Envelope is the canonical success-flag response shape used by every
// handler. Business-rule rejections (group full, already a member) reuse it
// with Success=false and HTTP 200.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// RespondData writes a success envelope with a payload.
func RespondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Data: data})
}

// RespondMessage writes a success envelope with a message and optional payload.
func RespondMessage(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Message: message, Data: data})
}

// RespondRejected writes a business-rule rejection: HTTP 200 with
// success=false. Not an error shape; the request was understood and refused.
func RespondRejected(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Success: false, Message: message})
}
