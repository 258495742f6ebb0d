package main

import (
	"log/slog"
	"strings"
	"sync"

	"polyemesis/internal/config"
	"polyemesis/internal/history"
	"polyemesis/internal/logging"
	"polyemesis/internal/multistream"
	"polyemesis/internal/services/restreamer"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// newClient builds a media server client. Connection details in the settings
// record, when present, take precedence over the application config so the
// CLI and the control panel steer the same server.
func (c *commandContext) newClient() (*restreamer.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	settings, err := multistream.LoadSettings(cfg.Paths.SettingsPath)
	if err != nil {
		return nil, err
	}
	if settings.Host != "" {
		conn := restreamer.Connection{
			Host:     settings.Host,
			Port:     settings.Port,
			UseHTTPS: settings.UseHTTPS,
			Username: settings.Username,
			Password: settings.Password,
		}
		return restreamer.NewClient(conn, restreamer.WithLogger(c.ensureLogger()))
	}
	return restreamer.FromConfig(cfg, restreamer.WithLogger(c.ensureLogger()))
}

func (c *commandContext) loadSettings() (*multistream.Settings, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	settings, err := multistream.LoadSettings(cfg.Paths.SettingsPath)
	if err != nil {
		return nil, "", err
	}
	return settings, cfg.Paths.SettingsPath, nil
}

// newOrchestrator wires the orchestrator with the history ledger when it is
// enabled. The caller must close the returned store (nil when disabled).
func (c *commandContext) newOrchestrator(client *restreamer.Client) (*multistream.Orchestrator, *history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	opts := []multistream.OrchestratorOption{multistream.WithLogger(c.ensureLogger())}
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, multistream.WithRecorder(store))
	}
	return multistream.NewOrchestrator(client, opts...), store, nil
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History.Path)
}
