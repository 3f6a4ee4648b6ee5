// Package config reads and writes the server's TOML configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults matching the original deployment: a single local server on a
// fixed port, storing everything under one directory.
const (
	DefaultPort        = 9121
	DefaultServiceName = "PhotoBackupServer"
)

// IndexDBName is the dedup index database file inside the storage root.
// Dot-prefixed so the usage walk never counts it as backed-up content.
const IndexDBName = ".backup_db.sqlite"

// Config is the main configuration for pbserver.
type Config struct {
	ServiceName string        `toml:"service_name"`
	Host        string        `toml:"host"`
	Port        int           `toml:"port"`
	StoragePath string        `toml:"storage_path"`
	Index       IndexConfig   `toml:"index"`
	Storage     StorageConfig `toml:"storage"`
}

// IndexConfig selects the dedup index backend. Tagged union: the Type
// field determines which other fields are relevant.
type IndexConfig struct {
	Type string `toml:"type"` // "sqlite" or "memory"
}

// StorageConfig selects the storage backend. Tagged union: the Type field
// determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type"` // "filesystem" or "memory"
}

// NewConfig creates a Config with defaults for the given storage path.
func NewConfig(storagePath string) *Config {
	return &Config{
		ServiceName: DefaultServiceName,
		Host:        "0.0.0.0",
		Port:        DefaultPort,
		StoragePath: storagePath,
		Index:       IndexConfig{Type: "sqlite"},
		Storage:     StorageConfig{Type: "filesystem"},
	}
}

// IndexDBPath returns the index database location inside the storage root.
func (c *Config) IndexDBPath() string {
	return filepath.Join(c.StoragePath, IndexDBName)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
