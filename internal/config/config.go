// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port         string
	Env          string
	LogLevel     string
	LogFormat    string
	WriteTimeout time.Duration // 0 means unbounded

	// CORS
	AllowedOrigins []string

	// Engine
	YtDlpPath             string
	DefaultFormat         string
	DefaultExt            string
	EngineInfoTimeout     time.Duration
	EngineDownloadTimeout time.Duration

	// Metadata cache (0 disables)
	MetadataCacheTTL time.Duration

	// Journal
	JournalEnabled bool
	JournalMaxAge  time.Duration

	// Workspace sweeper
	LocalCleanupInterval time.Duration
	LocalMaxFileAge      time.Duration

	// R2 handoff (enabled when the account is set)
	R2AccountID        string
	R2AccessKeyID      string
	R2SecretAccessKey  string
	R2BucketName       string
	R2Endpoint         string
	R2PublicURL        string
	PresignedURLExpiry time.Duration
	R2CleanupInterval  time.Duration
	R2MaxFileAge       time.Duration

	// Paths
	TempDir string
	DataDir string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{
		// Server
		Port:         getEnv("PORT", "10159"),
		Env:          getEnv("ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 0),

		// CORS
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		// Engine
		YtDlpPath:             getEnv("YTDLP_PATH", "yt-dlp"),
		DefaultFormat:         getEnv("DEFAULT_FORMAT", "best"),
		DefaultExt:            getEnv("DEFAULT_EXT", "mp4"),
		EngineInfoTimeout:     getEnvDuration("ENGINE_INFO_TIMEOUT", 0),
		EngineDownloadTimeout: getEnvDuration("ENGINE_DOWNLOAD_TIMEOUT", 0),

		MetadataCacheTTL: getEnvDuration("METADATA_CACHE_TTL", 10*time.Minute),

		// Journal
		JournalEnabled: getEnvBool("JOURNAL_ENABLED", true),
		JournalMaxAge:  getEnvDuration("JOURNAL_MAX_AGE", 7*24*time.Hour),

		// Workspace sweeper
		LocalCleanupInterval: getEnvDuration("LOCAL_CLEANUP_INTERVAL", 10*time.Minute),
		LocalMaxFileAge:      getEnvDuration("LOCAL_MAX_FILE_AGE", 2*time.Hour),

		// R2 handoff
		R2AccountID:        getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:      getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:  getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:       getEnv("R2_BUCKET_NAME", ""),
		R2Endpoint:         getEnv("R2_ENDPOINT", ""),
		R2PublicURL:        getEnv("R2_PUBLIC_URL", ""),
		PresignedURLExpiry: getEnvDuration("PRESIGNED_URL_EXPIRY", 15*time.Minute),
		R2CleanupInterval:  getEnvDuration("R2_CLEANUP_INTERVAL", 30*time.Minute),
		R2MaxFileAge:       getEnvDuration("R2_MAX_FILE_AGE", time.Hour),

		// Paths
		TempDir: getEnv("TEMP_DIR", "./downloads"),
		DataDir: getEnv("DATA_DIR", "./data"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.TempDir == "" {
		return errors.New("TEMP_DIR must not be empty")
	}
	if c.DefaultFormat == "" {
		return errors.New("DEFAULT_FORMAT must not be empty")
	}
	if c.R2Enabled() && c.R2BucketName == "" {
		return errors.New("R2_BUCKET_NAME is required when R2_ACCOUNT_ID is set")
	}
	return nil
}

// R2Enabled reports whether downloads are handed off through R2.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "15m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("Ignoring invalid duration", "key", key, "value", value)
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
