// Package identity manages the server's process-wide identity: a stable
// server ID and the API key clients must present. Both follow a
// load-or-generate-once lifecycle, persisted as hidden files inside the
// storage root.
package identity

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	serverIDFile = ".server_id"
	apiKeyFile   = ".api_key"
)

// Identity holds the server's identity values.
type Identity struct {
	ServerID string
	APIKey   string
}

// LoadOrCreate loads the identity files from the storage root, generating
// and persisting any that are missing. The storage root is created if it
// does not exist yet.
func LoadOrCreate(storagePath string) (*Identity, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	serverID, err := loadOrCreate(filepath.Join(storagePath, serverIDFile), newServerID)
	if err != nil {
		return nil, fmt.Errorf("loading server ID: %w", err)
	}

	apiKey, err := loadOrCreate(filepath.Join(storagePath, apiKeyFile), newAPIKey)
	if err != nil {
		return nil, fmt.Errorf("loading API key: %w", err)
	}

	return &Identity{ServerID: serverID, APIKey: apiKey}, nil
}

// PairingPayload returns the compact JSON a client needs to pair with
// this server. The address is deliberately absent: clients discover it
// via mDNS, and an embedded IP would go stale under DHCP.
func (i *Identity) PairingPayload() (string, error) {
	data, err := json.Marshal(struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}{ID: i.ServerID, Key: i.APIKey})
	if err != nil {
		return "", fmt.Errorf("encoding pairing payload: %w", err)
	}
	return string(data), nil
}

// loadOrCreate reads a single-value file, or generates and persists a new
// value if the file is missing or empty.
func loadOrCreate(path string, generate func() (string, error)) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	v, err := generate()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(v), 0600); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return v, nil
}

func newServerID() (string, error) {
	return uuid.New().String(), nil
}

// newAPIKey returns 32 random bytes as unpadded URL-safe base64.
func newAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
