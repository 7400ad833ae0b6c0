// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidVideoCount is returned when VIDEO_COUNT is below 1.
	ErrInvalidVideoCount = errors.New("config: VIDEO_COUNT must be at least 1")
	// ErrInvalidPollInterval is returned when POLL_INTERVAL is not positive.
	ErrInvalidPollInterval = errors.New("config: POLL_INTERVAL must be positive")
	// ErrInvalidProgressInterval is returned when PROGRESS_INTERVAL is not positive.
	ErrInvalidProgressInterval = errors.New("config: PROGRESS_INTERVAL must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Veo provider settings. GEMINI_API_KEY is optional here: a key saved
	// through the settings dialog takes precedence, this is the fallback.
	GeminiAPIKey string `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	VeoModel     string `env:"VEO_MODEL, default=veo-2.0-generate-001" json:"veo_model"`

	// Generation settings
	VideoCount       int           `env:"VIDEO_COUNT, default=1" json:"video_count"`
	PollInterval     time.Duration `env:"POLL_INTERVAL, default=1s" json:"poll_interval"`
	ProgressInterval time.Duration `env:"PROGRESS_INTERVAL, default=4s" json:"progress_interval"`

	// Storage settings
	DataDir string `env:"DATA_DIR, default=/tmp/minacast" json:"data_dir"`

	// Optional S3 settings for persisting finished videos
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.VideoCount < 1 {
		return ErrInvalidVideoCount
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.ProgressInterval <= 0 {
		return ErrInvalidProgressInterval
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, VeoModel: %s, VideoCount: %d, PollInterval: %s, ProgressInterval: %s, DataDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.VeoModel,
		c.VideoCount,
		c.PollInterval,
		c.ProgressInterval,
		c.DataDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
