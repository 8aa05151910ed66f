package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"trade-analytics-terminal/internal/config"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name        string
		level       string
		format      string
		enabled     zapcore.Level
		expectError bool
	}{
		{name: "JSON info", level: "info", format: "json", enabled: zapcore.InfoLevel},
		{name: "Console debug", level: "debug", format: "console", enabled: zapcore.DebugLevel},
		{name: "Empty level falls back to info", level: "", format: "console", enabled: zapcore.InfoLevel},
		{name: "Unknown level", level: "loud", format: "json", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, err := NewLogger(config.Logger{Level: tc.level, Format: tc.format})
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, log.Core().Enabled(tc.enabled))
			assert.False(t, log.Core().Enabled(tc.enabled-1))
		})
	}
}

func TestNewLogger_WritesFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "terminal.log")
	log, err := NewLogger(config.Logger{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	// Act
	log.Named("journal").Info("Recorded trade")
	log.Debug("hidden")
	_ = log.Sync()

	// Assert
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `"msg":"Recorded trade"`)
	assert.Contains(t, out, `"logger":"journal"`)
	assert.Contains(t, out, `"app":"trade-terminal"`)
	assert.NotContains(t, out, "hidden")
}

func TestNewLogger_ConsoleFileHasNoColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal.log")
	log, err := NewLogger(config.Logger{Level: "warn", Format: "console", File: path})
	require.NoError(t, err)

	log.Warn("Restored backup")
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "WARN")
	assert.NotContains(t, string(raw), "\x1b[")
	assert.NotContains(t, string(raw), "tRunner", "no stack trace on warnings")
}
