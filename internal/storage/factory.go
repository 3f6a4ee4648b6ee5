package storage

import (
	"fmt"

	"pbserver/internal/backup"
	"pbserver/internal/config"
)

// NewStorageFromConfig creates a Storage implementation based on the
// storage config type.
func NewStorageFromConfig(cfg *config.Config) (backup.Storage, error) {
	switch cfg.Storage.Type {
	case "filesystem":
		if cfg.StoragePath == "" {
			return nil, fmt.Errorf("filesystem storage requires storage_path to be set")
		}
		return NewFilesystemStorage(cfg.StoragePath)
	case "memory":
		return NewMemoryStorage(cfg.StoragePath), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
