package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	TokenFileName = "github_token"

	keyringService = "hireable"
	keyringUser    = "github_token"
	fileMode       = 0600
)

// ErrNoToken is returned when neither the keychain nor the file holds a token.
var ErrNoToken = errors.New("no github token stored, run the auth command or set GITHUB_TOKEN")

// TokenStore keeps the GitHub token in the OS keychain with a file in dir
// as fallback for hosts without one.
type TokenStore struct {
	dir string
}

func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

func (s *TokenStore) filePath() string {
	return filepath.Join(s.dir, TokenFileName)
}

func (s *TokenStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		if err := os.WriteFile(s.filePath(), []byte(token), fileMode); err != nil {
			return fmt.Errorf("writing token file %s: %w", s.filePath(), err)
		}
		return nil
	}

	s.removeFile()
	return nil
}

// Load returns the stored token, migrating a file token into the keychain
// when one becomes available.
func (s *TokenStore) Load() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	b, err := os.ReadFile(s.filePath())
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("reading token file %s: %w", s.filePath(), err)
	}

	token = strings.TrimSpace(string(b))
	if token == "" {
		return "", ErrNoToken
	}

	if err := keyring.Set(keyringService, keyringUser, token); err == nil {
		slog.Info("migrated token from file to OS keychain")
		s.removeFile()
	}

	return token, nil
}

// Delete removes the token from both locations.
func (s *TokenStore) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting keychain token: %w", err)
	}
	s.removeFile()
	return nil
}

func (s *TokenStore) removeFile() {
	if err := os.Remove(s.filePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("error removing token file", "path", s.filePath(), "error", err)
	}
}
