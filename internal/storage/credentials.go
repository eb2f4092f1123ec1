// Package storage persists local client state under the mobilechat home
// directory. Only credentials are durable; message timelines are
// intentionally in-memory and do not survive restarts.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Credentials is the stored login state.
type Credentials struct {
	// Token is the server-issued access token.
	Token string `json:"token"`
	// Username is the local user's display name.
	Username string `json:"username"`
	// UserID is the server-side account id.
	UserID string `json:"userId,omitempty"`
}

// SaveCredentials writes credentials to path with restrictive permissions.
func SaveCredentials(path string, creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// LoadCredentials reads credentials from path.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

// ClearCredentials removes the stored credentials. Missing files are fine.
func ClearCredentials(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
