package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first.
// Environment variables:
//   - PBSERVER_CONFIG_PATH: config file location (default: ~/.config/pbserver.toml)
//   - PBSERVER_STORAGE: storage root (default: ~/.local/share/pbserver/storage)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	storagePath, err := getStoragePath()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path":  configPath,
		"storage_path": storagePath,
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("PBSERVER_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "pbserver.toml"), nil
}

func getStoragePath() (string, error) {
	if path := os.Getenv("PBSERVER_STORAGE"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "pbserver", "storage"), nil
}
