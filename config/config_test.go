package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lossreport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "results", cfg.ResultsFolder)
	assert.Equal(t, "output", cfg.OutputFolder)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.Excel)
	assert.Equal(t, "png", cfg.Charts.Format)
	assert.Equal(t, "rescan", cfg.Repair.Algorithm)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 10*time.Second, cfg.API.CacheTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
results_folder: /data/results
workers: 8
excel: true
charts:
  format: svg
  histogram: true
repair:
  algorithm: suffix-min
redis:
  enabled: true
  ttl: 24h
api:
  cacheTTL: 30s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/results", cfg.ResultsFolder)
	assert.Equal(t, "output", cfg.OutputFolder)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Excel)
	assert.Equal(t, ChartsConfig{Format: "svg", Histogram: true}, cfg.Charts)
	assert.Equal(t, "suffix-min", cfg.Repair.Algorithm)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 30*time.Second, cfg.API.CacheTTL)
}

func TestLoad_ExcelDefaultsOn(t *testing.T) {
	cfg, err := Load(writeConfig(t, "workers: 2\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Excel)

	cfg, err = Load(writeConfig(t, "excel: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Excel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOSSREPORT_REDIS_HOST", "redis")
	t.Setenv("LOSSREPORT_REDIS_PORT", "6380")
	t.Setenv("LOSSREPORT_OUTPUT", "/tmp/out")

	cfg, err := Load(writeConfig(t, "redis:\n  host: ignored\n"))
	require.NoError(t, err)

	assert.Equal(t, "redis:6380", cfg.RedisAddr())
	assert.Equal(t, "/tmp/out", cfg.OutputFolder)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "workers: -1\ncharts:\n  format: gif\nrepair:\n  algorithm: bubble\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "charts.format")
	assert.Contains(t, err.Error(), "bubble")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "workers: [1, 2"))
	assert.Error(t, err)
}
