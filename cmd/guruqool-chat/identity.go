package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/guruqool/guruqool-backend/internal/chat"
)

var errNoSession = errors.New("no saved session, sign in with -login")

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".guruqool-session.json"
	}
	return filepath.Join(home, ".guruqool", "session.json")
}

// loadIdentity reads the signed-in user saved by a previous -login.
func loadIdentity(path string) (chat.Identity, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return chat.Identity{}, errNoSession
	}
	if err != nil {
		return chat.Identity{}, err
	}

	var id chat.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return chat.Identity{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if id.UserID == "" || id.Token == "" {
		return chat.Identity{}, errNoSession
	}
	if !id.Role.Valid() {
		return chat.Identity{}, fmt.Errorf("%s: %w", path, chat.ErrInvalidRole)
	}
	return id, nil
}

// saveIdentity writes the session readable by the owner only; it holds a token.
func saveIdentity(path string, id chat.Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
