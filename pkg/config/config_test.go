package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "teller.sessions", cfg.Exchange)
	assert.Equal(t, time.Second, cfg.ReconnectBase)
	assert.Equal(t, 30*time.Second, cfg.ReconnectCap)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.DebounceDelay)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELLERLINK_EXCHANGE", "branch.sessions")
	t.Setenv("TELLERLINK_RECONNECT_BASE", "250ms")
	t.Setenv("TELLERLINK_SESSION_ID", "s-url")

	cfg := Load()
	assert.Equal(t, "branch.sessions", cfg.Exchange)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectBase)
	assert.Equal(t, "s-url", cfg.SessionID)
}

func TestApplyFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tellerlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"broker_url: amqp://broker:5672/\nheartbeat_interval: 5s\n"), 0o600))

	cfg := Load()
	require.NoError(t, cfg.ApplyFile(path))
	assert.Equal(t, "amqp://broker:5672/", cfg.BrokerURL)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, "teller.sessions", cfg.Exchange, "unset file keys keep env values")
}

func TestApplyFile_MissingFile(t *testing.T) {
	cfg := Load()
	assert.Error(t, cfg.ApplyFile("/nonexistent/tellerlink.yaml"))
}
