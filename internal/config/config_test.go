package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "competitor-lens.db", cfg.Store.SQLitePath)
	assert.Equal(t, "s3", cfg.Objstore.Provider)
	assert.Equal(t, "eu-central-1", cfg.Objstore.Region)
	assert.Equal(t, "tesseract", cfg.OCR.Provider)
	assert.Equal(t, "tur+eng", cfg.OCR.Languages)
	assert.Equal(t, "inline", cfg.Jobs.Broker)
	assert.Equal(t, 5, cfg.Jobs.AnalysisConcurrency)
	assert.Equal(t, 1, cfg.Jobs.SyncConcurrency)
	assert.Equal(t, 5, cfg.Sync.UploadConcurrency)
	assert.Equal(t, 10, cfg.Batch.PaceEvery)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LENS_STORE_DRIVER", "postgres")
	t.Setenv("LENS_JOBS_BROKER", "nats")
	t.Setenv("LENS_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "nats", cfg.Jobs.Broker)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInitLogger_RejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouty", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestInitLogger_ConsoleFormat(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
