package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 60, cfg.PriceRefreshSeconds)
	assert.Equal(t, 30, cfg.PriceCacheTTLSeconds)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, 14, cfg.Backup.Keep)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("PRICE_REFRESH_SECONDS", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 120, cfg.PriceRefreshSeconds)
}

func TestLoad_BackupValidation(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("BACKUP_ENABLED", "true")
	t.Setenv("BACKUP_S3_BUCKET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RefreshValidation(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PRICE_REFRESH_SECONDS", "-5")

	_, err := Load()
	assert.Error(t, err)
}
