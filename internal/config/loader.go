package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Warn("No .env file found or error loading .env file", "err", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Upload.Endpoint == "" {
		return errors.New("UPLOAD_ENDPOINT is not set")
	}
	if c.Upload.NumWorkers == 0 {
		return errors.New("NUM_WORKERS must be at least 1")
	}
	if c.Watcher.StreamTimeout <= 0 {
		return errors.New("STREAM_TIMEOUT must be positive")
	}
	if c.Minio.ArchiveEnabled() && (c.Minio.AccessKey == "" || c.Minio.SecretKey == "") {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when ARCHIVE_BUCKET is set")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
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
