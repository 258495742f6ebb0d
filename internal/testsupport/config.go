// Package testsupport provides helpers for constructing test fixtures.
package testsupport

import (
	"path/filepath"
	"testing"

	"polyemesis/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Username = "test"
	cfg.Server.Password = "test"
	cfg.Paths.StateDir = base
	cfg.Paths.SettingsPath = filepath.Join(base, "multistream.json")
	cfg.History.Path = filepath.Join(base, "history.db")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithServer overrides the media server endpoint on the test config.
func WithServer(host string, port int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Server.Host = host
		cfg.Server.Port = port
	}
}

// WithHistoryDisabled turns off the streaming history ledger.
func WithHistoryDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.History.Enabled = false
	}
}
