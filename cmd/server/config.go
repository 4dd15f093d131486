package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	Addr                string          `yaml:"addr"`
	LogLevel            string          `yaml:"log_level"`
	TLS                 tlsConfig       `yaml:"tls"`
	Index               indexConfig     `yaml:"index"`
	SuffixesFile        string          `yaml:"suffixes_file"`
	RateLimit           rateLimitConfig `yaml:"rate_limit"`
	SourcesDB           string          `yaml:"sources_db"`
	SourceCheckInterval time.Duration   `yaml:"source_check_interval"`
	StaleAfter          time.Duration   `yaml:"stale_after"`
	ExposeIndex         bool            `yaml:"expose_index"`
}

type tlsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type indexConfig struct {
	Backend            string        `yaml:"backend"` // "sqlite" or "remote"
	Path               string        `yaml:"path"`
	RemoteURL          string        `yaml:"remote_url"`
	RemoteDissolvedURL string        `yaml:"remote_dissolved_url"`
	Timeout            time.Duration `yaml:"timeout"`
	MatchLimit         int           `yaml:"match_limit"`
}

type rateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func defaultConfig() config {
	return config{
		Addr:     ":8420",
		LogLevel: "info",
		Index: indexConfig{
			Backend:    "sqlite",
			Path:       "data/index.db",
			Timeout:    2 * time.Second,
			MatchLimit: 20,
		},
		SourcesDB:           "data/sources.db",
		SourceCheckInterval: 24 * time.Hour,
		StaleAfter:          35 * 24 * time.Hour,
	}
}

// loadConfig overlays the YAML file at path on the defaults. A missing file
// leaves the defaults in place.
func loadConfig(path string, logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch c.Index.Backend {
	case "sqlite":
		if c.Index.Path == "" {
			return fmt.Errorf("index.path is required for the sqlite backend")
		}
	case "remote":
		if c.Index.RemoteURL == "" {
			return fmt.Errorf("index.remote_url is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown index.backend %q", c.Index.Backend)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
