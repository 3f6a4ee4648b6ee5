// Package app wires the server's components together from configuration
// and owns their lifecycle.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"pbserver/internal/backup"
	"pbserver/internal/config"
	"pbserver/internal/identity"
	"pbserver/internal/index"
	"pbserver/internal/storage"
)

// App holds the fully wired components behind the CLI and the HTTP
// server. The caller must call Close when done.
type App struct {
	cfg     *config.Config
	ident   *identity.Identity
	index   backup.Index
	storage backup.Storage
	service *backup.Service
	logger  backup.Logger
	logFile *os.File
}

// New creates a fully wired App from the given config. It fails fast when
// the storage root is unwritable or the index cannot be opened; these are
// the only conditions treated as fatal.
func New(cfg *config.Config) (*App, error) {
	ident, err := identity.LoadOrCreate(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	store, err := storage.NewStorageFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	idx, err := index.NewIndexFromConfig(cfg, backup.RealClock{})
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	logger, logFile, err := newLogger(filepath.Join(cfg.StoragePath, ".log"))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapted := &slogAdapter{l: logger}
	svc := backup.NewService(idx, store, adapted, backup.RealClock{})

	return &App{
		cfg:     cfg,
		ident:   ident,
		index:   idx,
		storage: store,
		service: svc,
		logger:  adapted,
		logFile: logFile,
	}, nil
}

// Service returns the ingestion pipeline.
func (a *App) Service() *backup.Service {
	return a.service
}

// Identity returns the server's identity values.
func (a *App) Identity() *identity.Identity {
	return a.ident
}

// Logger returns the application logger.
func (a *App) Logger() backup.Logger {
	return a.logger
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases the index and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.index.Close(); err != nil {
		firstErr = fmt.Errorf("closing index: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
