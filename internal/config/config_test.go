package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("R2_ACCOUNT_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "best", cfg.DefaultFormat)
	assert.Equal(t, "mp4", cfg.DefaultExt)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Duration(0), cfg.EngineDownloadTimeout)
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout)
	assert.True(t, cfg.JournalEnabled)
	assert.False(t, cfg.R2Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://app.example ,")
	t.Setenv("METADATA_CACHE_TTL", "0")
	t.Setenv("ENGINE_INFO_TIMEOUT", "45")
	t.Setenv("ENGINE_DOWNLOAD_TIMEOUT", "20m")
	t.Setenv("JOURNAL_ENABLED", "false")
	t.Setenv("LOCAL_MAX_FILE_AGE", "not-a-duration")
	t.Setenv("WRITE_TIMEOUT", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://localhost:3000", "https://app.example"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Duration(0), cfg.MetadataCacheTTL)
	assert.Equal(t, 45*time.Second, cfg.EngineInfoTimeout)
	assert.Equal(t, 20*time.Minute, cfg.EngineDownloadTimeout)
	assert.False(t, cfg.JournalEnabled)
	assert.Equal(t, 2*time.Hour, cfg.LocalMaxFileAge)
	assert.Equal(t, time.Hour, cfg.WriteTimeout)
}

func TestLoadRejectsR2WithoutBucket(t *testing.T) {
	t.Setenv("R2_ACCOUNT_ID", "acc")
	t.Setenv("R2_BUCKET_NAME", "")

	_, err := Load()
	assert.Error(t, err)
}
