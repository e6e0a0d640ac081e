package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoku/internal/config"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetenv(t, "PORT", "JWT_SECRET", "KAFKA_BROKERS", "STORAGE_BACKEND", "UPLOAD_MAX_BYTES", "VERSION", "CACHE_TTL", "CACHE_SIZE")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, int64(2<<20), cfg.UploadMaxBytes)
	assert.Len(t, cfg.JWTSecret, 64)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 4096, cfg.CacheSize)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
}

func TestValidate(t *testing.T) {
	base := config.Config{Version: "1.2.3", StorageBackend: "local", UploadMaxBytes: 1}
	require.NoError(t, base.Validate())

	bad := base
	bad.Version = "not-a-version"
	assert.Error(t, bad.Validate())

	bad = base
	bad.StorageBackend = "ftp"
	assert.Error(t, bad.Validate())

	bad = base
	bad.JWTSecret = "short"
	assert.Error(t, bad.Validate())
}
