package server

import (
	"os"

	"github.com/gofiber/fiber/v2"
)

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	ServerName string `json:"server_name"`
	ServerID   string `json:"server_id"`
}

type statusResponse struct {
	Status         string `json:"status"`
	StoragePath    string `json:"storage_path"`
	TotalFiles     int64  `json:"total_files"`
	TotalSizeBytes int64  `json:"total_size_bytes"`
	TotalSizeHuman string `json:"total_size_human"`
	APIVersion     string `json:"api_version"`
}

// handleHealth reports liveness. Unauthenticated so a client can probe a
// discovered server before pairing.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return c.JSON(healthResponse{
		Status:     "ok",
		Version:    APIVersion,
		ServerName: hostname,
		ServerID:   s.ident.ServerID,
	})
}

// handleStatus reports storage usage from a walk of the storage root.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	usage, err := s.service.Usage()
	if err != nil {
		s.logger.Error("status failed", "error", err)
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}

	return c.JSON(statusResponse{
		Status:         "ok",
		StoragePath:    usage.Root,
		TotalFiles:     usage.FileCount,
		TotalSizeBytes: usage.TotalBytes,
		TotalSizeHuman: usage.TotalHuman,
		APIVersion:     APIVersion,
	})
}
