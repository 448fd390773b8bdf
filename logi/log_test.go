package logi

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := newLogger(&Config{LogDir: dir, Level: slog.LevelDebug})
	require.NoError(t, err)

	l.Debug("scenario done", "scenario", "t-1")

	raw, err := os.ReadFile(filepath.Join(dir, "lossreport.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"logger initialized"`)
	assert.Contains(t, lines[1], `"scenario":"t-1"`)
}

func TestNewLogger_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	l, err := newLogger(&Config{LogDir: dir, LogFileName: "x.log", Level: slog.LevelWarn})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept")

	raw, err := os.ReadFile(filepath.Join(dir, "x.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped")
	assert.Contains(t, string(raw), "kept")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLog_Singleton(t *testing.T) {
	dir := t.TempDir()
	first, err := NewLog(&Config{LogDir: dir})
	require.NoError(t, err)
	second, err := NewLog(&Config{LogDir: filepath.Join(dir, "other")})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, GetLogger())
}
