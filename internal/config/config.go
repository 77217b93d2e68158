// Package config resolves runtime settings from defaults, an optional YAML
// file, a .env file and TASKDESK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"taskdesk/internal/util"
)

// Config holds every runtime setting.
type Config struct {
	Addr           string        `yaml:"addr"`
	DBPath         string        `yaml:"db_path"`
	StaticDir      string        `yaml:"static_dir"`
	PublicURL      string        `yaml:"public_url"`
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	DueSoonWindow  time.Duration `yaml:"due_soon_window"`
	LogLevel       string        `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:           ":8080",
		DBPath:         "data/taskdesk.db",
		StaticDir:      "web/dist",
		PublicURL:      "http://localhost:8080/",
		WebhookTimeout: 30 * time.Second,
		SweepInterval:  time.Minute,
		DueSoonWindow:  30 * time.Minute,
		LogLevel:       "info",
	}
}

// Load builds the configuration. path may be empty; a missing file is not
// an error. Variables from a .env file in the working directory never
// override variables that are already set.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	cfg.Addr = util.EnvOrDefault("TASKDESK_ADDR", cfg.Addr)
	cfg.DBPath = util.EnvOrDefault("TASKDESK_DB_PATH", cfg.DBPath)
	cfg.StaticDir = util.EnvOrDefault("TASKDESK_STATIC_DIR", cfg.StaticDir)
	cfg.PublicURL = util.EnvOrDefault("TASKDESK_PUBLIC_URL", cfg.PublicURL)
	cfg.WebhookURL = util.EnvOrDefault("TASKDESK_WEBHOOK_URL", cfg.WebhookURL)
	cfg.WebhookTimeout = util.EnvDuration("TASKDESK_WEBHOOK_TIMEOUT", cfg.WebhookTimeout)
	cfg.SweepInterval = util.EnvDuration("TASKDESK_SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.DueSoonWindow = util.EnvDuration("TASKDESK_DUE_SOON_WINDOW", cfg.DueSoonWindow)
	cfg.LogLevel = util.EnvOrDefault("TASKDESK_LOG_LEVEL", cfg.LogLevel)

	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhook url %q must be an absolute http(s) URL", c.WebhookURL)
		}
	}
	if c.WebhookTimeout <= 0 {
		return fmt.Errorf("webhook timeout must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.DueSoonWindow < 0 {
		return fmt.Errorf("due soon window must not be negative")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
