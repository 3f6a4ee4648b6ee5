package server

import "github.com/gofiber/fiber/v2"

// errorPayload is the standardized error response body.
type errorPayload struct {
	Error errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response without leaking internal
// details. code is a machine-readable short code, message is safe for
// display.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		Error: errorEnvelope{Code: code, Message: message},
	})
}

// errorHandler standardizes responses for errors that escape handlers.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		status = e.Code
	}

	switch status {
	case fiber.StatusBadRequest:
		return writeError(c, status, "BAD_REQUEST", "bad request")
	case fiber.StatusNotFound:
		return writeError(c, status, "NOT_FOUND", "resource not found")
	case fiber.StatusRequestEntityTooLarge:
		return writeError(c, status, "TOO_LARGE", "request body too large")
	default:
		return writeError(c, status, "INTERNAL_ERROR", "internal server error")
	}
}
