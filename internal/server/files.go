package server

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"pbserver/internal/backup"
)

type checkRequest struct {
	Hashes []string `json:"hashes"`
}

type checkResponse struct {
	Existing []string `json:"existing"`
	Missing  []string `json:"missing"`
}

type uploadResponse struct {
	Status  string `json:"status"`
	Path    string `json:"path,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Message string `json:"message,omitempty"`
}

type statsResponse struct {
	TotalFiles     int64      `json:"total_files"`
	TotalSizeBytes int64      `json:"total_size_bytes"`
	TotalSizeHuman string     `json:"total_size_human"`
	FirstBackup    *time.Time `json:"first_backup"`
	LastBackup     *time.Time `json:"last_backup"`
	StoragePath    string     `json:"storage_path"`
}

// handleCheck answers which of the submitted hashes are already backed
// up, so the client can skip re-uploading those files.
func (s *Server) handleCheck(c *fiber.Ctx) error {
	var req checkRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	result, err := s.service.CheckExisting(req.Hashes)
	if err != nil {
		s.logger.Error("check failed", "error", err)
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}

	return c.JSON(checkResponse{Existing: result.Existing, Missing: result.Missing})
}

// handleUpload ingests a single file pushed as multipart form data.
// Fields: file, file_hash (required), original_path, date_taken (epoch
// millis), mime_type, device_name, source.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}

	claimed := c.FormValue("file_hash")
	if claimed == "" {
		return writeError(c, fiber.StatusBadRequest, "HASH_REQUIRED", "file_hash is required")
	}

	filename := fh.Filename
	if filename == "" {
		filename = "unknown"
	}

	mimeType := c.FormValue("mime_type")
	if mimeType == "" {
		mimeType = fh.Header.Get("Content-Type")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	meta := backup.UploadMetadata{
		Filename:     filename,
		OriginalPath: c.FormValue("original_path"),
		MimeType:     mimeType,
		SourceDevice: c.FormValue("device_name"),
		SourceTag:    c.FormValue("source"),
	}

	// date_taken is best effort: an unparseable value falls back to the
	// allocation time, same as an absent one.
	if raw := c.FormValue("date_taken"); raw != "" {
		if millis, perr := strconv.ParseInt(raw, 10, 64); perr == nil && millis > 0 {
			t := time.UnixMilli(millis)
			meta.CapturedAt = &t
		}
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	defer f.Close()

	result, err := s.service.Upload(f, claimed, meta)
	if err != nil {
		s.logger.Error("upload failed", "error", err)
		if errors.Is(err, backup.ErrStorageWrite) {
			return writeError(c, fiber.StatusInternalServerError, "STORAGE_ERROR", "failed to store file")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}

	switch result.Status {
	case backup.StatusAlreadyExists:
		return c.JSON(uploadResponse{Status: "exists", Message: "File already backed up"})
	case backup.StatusHashMismatch:
		return writeError(c, fiber.StatusBadRequest, "HASH_MISMATCH",
			fmt.Sprintf("Hash mismatch: expected %s, got %s", claimed, result.Digest))
	default:
		return c.JSON(uploadResponse{Status: "success", Path: result.StoragePath, Hash: result.Digest})
	}
}

// handleStats reports aggregate backup statistics.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.service.Stats()
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}

	return c.JSON(statsResponse{
		TotalFiles:     stats.TotalFiles,
		TotalSizeBytes: stats.TotalSizeBytes,
		TotalSizeHuman: stats.TotalSizeHuman,
		FirstBackup:    stats.FirstBackup,
		LastBackup:     stats.LastBackup,
		StoragePath:    stats.StorageRoot,
	})
}
