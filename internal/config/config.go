// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the databases, always absolute
	Port     int
	LogLevel string
	DevMode  bool

	// Price oracle
	CoinGeckoBaseURL     string
	BinanceBaseURL       string
	PriceRefreshSeconds  int // cadence of the background price refresh job
	PriceCacheTTLSeconds int // freshness window for cached quotes

	// Backups
	Backup BackupConfig
}

// BackupConfig holds backup automation configuration. Backups upload to any
// S3-compatible store (AWS S3, Cloudflare R2, MinIO).
type BackupConfig struct {
	Enabled   bool
	Schedule  string // cron expression (with seconds field)
	Keep      int    // number of remote archives to retain
	Bucket    string
	Endpoint  string // empty for AWS S3 proper
	Region    string
	AccessKey string
	SecretKey string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 8090),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		CoinGeckoBaseURL:     getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		BinanceBaseURL:       getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
		PriceRefreshSeconds:  getEnvAsInt("PRICE_REFRESH_SECONDS", 60),
		PriceCacheTTLSeconds: getEnvAsInt("PRICE_CACHE_TTL_SECONDS", 30),
		Backup: BackupConfig{
			Enabled:   getEnvAsBool("BACKUP_ENABLED", false),
			Schedule:  getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			Keep:      getEnvAsInt("BACKUP_KEEP", 14),
			Bucket:    getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:    getEnv("BACKUP_S3_REGION", "auto"),
			AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.PriceRefreshSeconds <= 0 {
		return fmt.Errorf("PRICE_REFRESH_SECONDS must be positive, got %d", c.PriceRefreshSeconds)
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("BACKUP_S3_BUCKET is required when backups are enabled")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
