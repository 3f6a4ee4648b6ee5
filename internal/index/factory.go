package index

import (
	"fmt"

	"pbserver/internal/backup"
	"pbserver/internal/config"
)

// NewIndexFromConfig creates an Index implementation based on the index
// config type. The sqlite index lives inside the storage root as a hidden
// file so it survives restarts alongside the content it describes.
func NewIndexFromConfig(cfg *config.Config, clock backup.Clock) (backup.Index, error) {
	switch cfg.Index.Type {
	case "sqlite":
		return NewSQLiteIndex(cfg.IndexDBPath(), clock)
	case "memory":
		return NewSQLiteIndex(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown index type: %s", cfg.Index.Type)
	}
}
