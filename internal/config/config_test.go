package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MOBILECHAT_SERVER_URL",
		"MOBILECHAT_SOCKET_URL",
		"MOBILECHAT_MAX_RETRIES",
		"MOBILECHAT_RETRY_DELAY",
		"MOBILECHAT_PAGE_SIZE",
		"MOBILECHAT_PENDING_TIMEOUT",
		"MOBILECHAT_RECONCILE_WINDOW",
		"MOBILECHAT_PUSHOVER_TOKEN",
		"MOBILECHAT_PUSHOVER_USER",
		"MOBILECHAT_DEBUG",
		"DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("MOBILECHAT_HOME_DIR", home)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, defaultServerURL, cfg.ServerURL)
	require.Empty(t, cfg.SocketURL)
	require.Equal(t, home, cfg.Home)
	require.Equal(t, filepath.Join(home, "credentials.json"), cfg.CredentialsPath)
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, 3*time.Second, cfg.RetryDelay)
	require.Equal(t, 50, cfg.PageSize)
	require.Equal(t, time.Duration(0), cfg.PendingTimeout)
	require.Equal(t, 2*time.Minute, cfg.ReconcileWindow)
	require.False(t, cfg.Debug)

	// The home directory is created on load.
	require.DirExists(t, home)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOBILECHAT_HOME_DIR", t.TempDir())
	t.Setenv("MOBILECHAT_SERVER_URL", "https://chat.example.com")
	t.Setenv("MOBILECHAT_SOCKET_URL", "wss://chat.example.com")
	t.Setenv("MOBILECHAT_MAX_RETRIES", "9")
	t.Setenv("MOBILECHAT_RETRY_DELAY", "500ms")
	t.Setenv("MOBILECHAT_PAGE_SIZE", "10")
	t.Setenv("MOBILECHAT_PENDING_TIMEOUT", "30s")
	t.Setenv("MOBILECHAT_RECONCILE_WINDOW", "45s")
	t.Setenv("DEBUG", "1")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "https://chat.example.com", cfg.ServerURL)
	require.Equal(t, "wss://chat.example.com", cfg.SocketURL)
	require.Equal(t, 9, cfg.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
	require.Equal(t, 10, cfg.PageSize)
	require.Equal(t, 30*time.Second, cfg.PendingTimeout)
	require.Equal(t, 45*time.Second, cfg.ReconcileWindow)
	require.True(t, cfg.Debug)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MOBILECHAT_HOME_DIR", t.TempDir())

	t.Setenv("MOBILECHAT_MAX_RETRIES", "many")
	_, err := Load()
	require.Error(t, err)
	t.Setenv("MOBILECHAT_MAX_RETRIES", "")

	t.Setenv("MOBILECHAT_RETRY_DELAY", "soon")
	_, err = Load()
	require.Error(t, err)
}
