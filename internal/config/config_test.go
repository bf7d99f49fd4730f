package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/skycart/internal/persist"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SKYCART_STATE_DIR", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.APIURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "file", cfg.StateBackend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.ActivityEnabled())
	assert.Empty(t, cfg.Metrics().Endpoint)
}

func TestLoad_EnvironmentAndFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"SKYCART_API_URL=https://shop.example.com/api/v1\n"+
			"SKYCART_LOG_LEVEL=debug\n"+
			"SKYCART_STATE_DIR="+dir+"\n",
	), 0o600))
	t.Setenv("SKYCART_LOG_LEVEL", "warn")
	t.Setenv("SKYCART_REQUEST_TIMEOUT", "3s")
	t.Setenv("SKYCART_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SKYCART_OTLP_HEADERS", "signoz-ingestion-key:abc")
	t.Setenv("SKYCART_SEAL_KEY", "hunter2")
	t.Cleanup(func() {
		os.Unsetenv("SKYCART_API_URL")
		os.Unsetenv("SKYCART_STATE_DIR")
	})

	cfg, err := Load(envFile)

	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/api/v1", cfg.APIURL)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ActivityEnabled())
	assert.Equal(t, map[string]string{"signoz-ingestion-key": "abc"}, cfg.Metrics().Headers)

	opts := cfg.Storage()
	assert.Equal(t, dir, opts.Dir)
	assert.Equal(t, "hunter2", opts.SealKey)
	assert.Equal(t, []string{persist.TokenKey}, opts.SealedKeys)
}
