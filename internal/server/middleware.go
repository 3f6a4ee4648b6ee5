package server

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"

	"pbserver/internal/backup"
)

// APIKey authenticates requests by the X-API-Key header, compared in
// constant time against the configured key.
func APIKey(key string, logger backup.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("X-API-Key")
		if provided == "" {
			logger.Warn("API key missing in request", "path", c.Path())
			return writeError(c, fiber.StatusUnauthorized, "API_KEY_REQUIRED", "API key required")
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			logger.Warn("invalid API key provided", "path", c.Path())
			return writeError(c, fiber.StatusUnauthorized, "API_KEY_INVALID", "invalid API key")
		}
		return c.Next()
	}
}

// RequestLogger logs one line per request with method, path, status and
// latency.
func RequestLogger(logger backup.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}
