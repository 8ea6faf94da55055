package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempTOML(t, `
[server]
address = ":9000"
event_buffer = 16

[rtorrent]
socket = "unix:///from/file.sock"
timeout = "3s"

[sync]
idle_interval = "10s"
rate_threshold = 2048

[log]
level = "warn"
`)
	t.Setenv("CONFIG", path)
	t.Setenv("RTORRENT_SOCKET", "/from/env.sock")
	t.Setenv("SYNC_BATCH_DELAY", "250ms")

	cfg, err := Load([]string{"-addr", ":7000"})
	require.NoError(t, err)

	assert.Equal(t, "/from/env.sock", cfg.RTorrent.Socket, "env beats file")
	assert.Equal(t, ":7000", cfg.Server.Address, "flag beats file")
	assert.Equal(t, 3*time.Second, cfg.RTorrent.Timeout.Std(), "file beats defaults")
	assert.Equal(t, 16, cfg.Server.EventBuffer)
	assert.Equal(t, 10*time.Second, cfg.Sync.IdleInterval.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.BatchDelay.Std())
	assert.Equal(t, int64(2048), cfg.Sync.RateThreshold)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, time.Second, cfg.Sync.ActiveInterval.Std(), "defaults fill the rest")
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvBeatsFlag(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load([]string{"-log-level", "error"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFlag(t *testing.T) {
	path := writeTempTOML(t, "[server]\nallowed_origins = [\"http://localhost:5173\"]\n")

	cfg, err := Load([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvList(t *testing.T) {
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a,http://b")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load([]string{"-config", filepath.Join(t.TempDir(), "absent.toml")})
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("broken toml", func(t *testing.T) {
		_, err := Load([]string{"-config", writeTempTOML(t, "[server\naddress=")})
		require.Error(t, err)
	})
	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv("RTORRENT_TIMEOUT", "soon")
		_, err := Load(nil)
		require.Error(t, err)
	})
	t.Run("unknown flag", func(t *testing.T) {
		_, err := Load([]string{"-nope"})
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg.Server.Address = " "
	cfg.RTorrent.Socket = ""
	cfg.Sync.Heartbeat = 0
	cfg.Sync.RatioThreshold = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidServerConfig)
	assert.ErrorIs(t, err, ErrInvalidRTorrentConfig)
	assert.ErrorIs(t, err, ErrInvalidSyncConfig)
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("ninety")))
}
