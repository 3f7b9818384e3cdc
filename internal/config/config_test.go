package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8765", cfg.Addr)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "users.json", cfg.UsersFile)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.PresenceInterval)
	assert.Equal(t, 200, cfg.HistoryLimit)
	assert.Equal(t, "general", cfg.DefaultRoom)
	assert.True(t, cfg.CreateRoomOnPublish)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("PARLEY_ADDR", "0.0.0.0:9000")
	t.Setenv("PARLEY_IDLE_TIMEOUT", "30s")
	t.Setenv("PARLEY_HISTORY_LIMIT", "50")
	t.Setenv("PARLEY_CREATE_ROOM_ON_PUBLISH", "false")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.False(t, cfg.CreateRoomOnPublish)
}

func TestNewRejectsInvalidEnv(t *testing.T) {
	t.Setenv("PARLEY_HISTORY_LIMIT", "not-a-number")

	_, err := New()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	t.Run("flag overrides are checked", func(t *testing.T) {
		cfg.Addr = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive bounds are rejected", func(t *testing.T) {
		cfg, err := New()
		require.NoError(t, err)

		cfg.HistoryLimit = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestPaths(t *testing.T) {
	cfg := &Config{
		DataDir:     "/var/lib/parley",
		UsersFile:   "users.json",
		RoomsFile:   "rooms.json",
		HistoryFile: "history.json",
		LogFile:     "server.log",
	}

	assert.Equal(t, "/var/lib/parley/users.json", cfg.UsersPath())
	assert.Equal(t, "/var/lib/parley/rooms.json", cfg.RoomsPath())
	assert.Equal(t, "/var/lib/parley/history.json", cfg.HistoryPath())
	assert.Equal(t, "/var/lib/parley/server.log", cfg.LogPath())
}
