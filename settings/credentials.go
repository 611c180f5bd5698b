// Package settings provides the user-level credential store for the
// remote translation service.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/lingokit/auth.json  (default: ~/.local/share/lingokit/auth.json)
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order for API configuration:
//  1. --api-url / --api-key flags (highest priority)
//  2. LINGOKIT_API_URL / LINGOKIT_API_KEY environment variables
//  3. This store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "lingokit"
	fileName    = "auth.json"
)

// Credentials is the stored API configuration.
type Credentials struct {
	APIURL string `json:"apiUrl,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

// dataDir returns the XDG data directory for lingokit. Respects
// $XDG_DATA_HOME, falling back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// filePath returns the auth.json path.
func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads the credential store. A missing file yields empty
// credentials, not an error.
func Load() (*Credentials, error) {
	path, err := filePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &creds, nil
}

// Save writes the credential store with restrictive permissions.
func (c *Credentials) Save() error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// APIKey returns the stored API key, or empty when no store exists.
func APIKey() string {
	creds, err := Load()
	if err != nil {
		return ""
	}
	return creds.APIKey
}

// APIURL returns the stored API URL, or empty when no store exists.
func APIURL() string {
	creds, err := Load()
	if err != nil {
		return ""
	}
	return creds.APIURL
}
