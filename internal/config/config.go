// Package config loads client configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// defaultServerURL matches the development backend the app ships against.
const defaultServerURL = "http://192.168.1.122:8000"

// Config is the resolved client configuration.
type Config struct {
	// ServerURL is the REST base URL (no trailing slash).
	ServerURL string
	// SocketURL is the websocket base URL; derived from ServerURL if unset.
	SocketURL string

	// Home is the directory where mobilechat stores local state.
	Home string
	// CredentialsPath is the stored-login file location.
	CredentialsPath string

	// MaxRetries bounds reconnect attempts per outage.
	MaxRetries int
	// RetryDelay is the fixed delay between reconnect attempts.
	RetryDelay time.Duration
	// PageSize is the history page size.
	PageSize int
	// PendingTimeout expires unacknowledged optimistic sends; zero keeps
	// them pending indefinitely.
	PendingTimeout time.Duration
	// ReconcileWindow bounds the timestamp skew tolerated when matching a
	// server echo to an optimistic send.
	ReconcileWindow time.Duration

	// PushoverToken and PushoverUser enable push notifications when both
	// are set.
	PushoverToken string
	PushoverUser  string

	// Debug enables verbose logging.
	Debug bool
}

// Load resolves configuration from .env (if present), the environment, and
// defaults.
func Load() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	home := os.Getenv("MOBILECHAT_HOME_DIR")
	if home == "" {
		home = filepath.Join(homeDir, ".mobilechat")
	}
	if err := os.MkdirAll(home, 0700); err != nil {
		return nil, fmt.Errorf("create mobilechat home: %w", err)
	}

	serverURL := os.Getenv("MOBILECHAT_SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}

	maxRetries, err := intEnv("MOBILECHAT_MAX_RETRIES", 5)
	if err != nil {
		return nil, err
	}
	retryDelay, err := durationEnv("MOBILECHAT_RETRY_DELAY", 3*time.Second)
	if err != nil {
		return nil, err
	}
	pageSize, err := intEnv("MOBILECHAT_PAGE_SIZE", 50)
	if err != nil {
		return nil, err
	}
	pendingTimeout, err := durationEnv("MOBILECHAT_PENDING_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}
	reconcileWindow, err := durationEnv("MOBILECHAT_RECONCILE_WINDOW", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	debug := os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1" ||
		os.Getenv("MOBILECHAT_DEBUG") == "true" || os.Getenv("MOBILECHAT_DEBUG") == "1"

	return &Config{
		ServerURL:       serverURL,
		SocketURL:       os.Getenv("MOBILECHAT_SOCKET_URL"),
		Home:            home,
		CredentialsPath: filepath.Join(home, "credentials.json"),
		MaxRetries:      maxRetries,
		RetryDelay:      retryDelay,
		PageSize:        pageSize,
		PendingTimeout:  pendingTimeout,
		ReconcileWindow: reconcileWindow,
		PushoverToken:   os.Getenv("MOBILECHAT_PUSHOVER_TOKEN"),
		PushoverUser:    os.Getenv("MOBILECHAT_PUSHOVER_USER"),
		Debug:           debug,
	}, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}
