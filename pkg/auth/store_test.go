package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestTokenStore_Keychain(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	s := NewTokenStore(dir)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Save(" gho_abc "))
	token, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "gho_abc", token)

	_, err = os.Stat(filepath.Join(dir, TokenFileName))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Delete())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	assert.NoError(t, s.Delete())
}

func TestTokenStore_FileFallback(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keychain"))
	dir := t.TempDir()
	s := NewTokenStore(dir)

	require.NoError(t, s.Save("gho_file"))
	b, err := os.ReadFile(filepath.Join(dir, TokenFileName))
	require.NoError(t, err)
	assert.Equal(t, "gho_file", string(b))

	token, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "gho_file", token)
}

func TestTokenStore_MigratesFile(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	path := filepath.Join(dir, TokenFileName)
	require.NoError(t, os.WriteFile(path, []byte("gho_legacy\n"), 0600))

	token, err := NewTokenStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "gho_legacy", token)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	got, err := keyring.Get(keyringService, keyringUser)
	require.NoError(t, err)
	assert.Equal(t, "gho_legacy", got)
}

func TestTokenStore_SaveEmpty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, NewTokenStore(t.TempDir()).Save(" "))
}
