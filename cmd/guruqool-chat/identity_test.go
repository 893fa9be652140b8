package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/guruqool/guruqool-backend/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	want := chat.Identity{UserID: "s1", Role: chat.RoleStudent, Username: "kabir", Token: "tok"}

	require.NoError(t, saveIdentity(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := loadIdentity(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadIdentityMissing(t *testing.T) {
	_, err := loadIdentity(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, errNoSession)
}

func TestLoadIdentityRejectsBadRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"userId":"a1","role":"admin","token":"tok"}`), 0o600))

	_, err := loadIdentity(path)
	assert.ErrorIs(t, err, chat.ErrInvalidRole)
}

func TestWSURLFromAPI(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", wsURLFromAPI("http://localhost:8080"))
	assert.Equal(t, "wss://api.guruqool.com/ws", wsURLFromAPI("https://api.guruqool.com/"))
}

func TestParseCommand(t *testing.T) {
	cmd, arg := parseCommand("/retry temp-123 ")
	assert.Equal(t, "/retry", cmd)
	assert.Equal(t, "temp-123", arg)

	cmd, arg = parseCommand("hello /retry")
	assert.Empty(t, cmd)
	assert.Equal(t, "hello /retry", arg)
}
