// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/uiharness/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -- Test Helper Functions --

// initToBuffer initializes the global logger with console output captured in a buffer.
func initToBuffer(t *testing.T, cfg config.LoggerConfig) *bytes.Buffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(cfg, zapcore.AddSync(&buf))
	return &buf
}

// -- Test Cases --

func TestInitialize(t *testing.T) {
	t.Run("should initialize console logger with colors", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "uiharness",
			Colors:      config.ColorConfig{Info: "green"},
		})

		GetLogger().Named("locator").Info("Resolved target.", zap.String("target", "Close icon"))
		Sync()

		output := buf.String()
		assert.Contains(t, output, colorGreen+"INFO"+colorReset)
		assert.Contains(t, output, "uiharness.locator.")
		assert.Contains(t, output, "Resolved target.")
		assert.Contains(t, output, `"target": "Close icon"`)
	})

	t.Run("should leave levels without a color plain", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{Level: "debug", Format: "console"})

		GetLogger().Warn("plain")
		Sync()

		assert.Contains(t, buf.String(), "WARN")
		assert.NotContains(t, buf.String(), colorReset)
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"})

		GetLogger().Warn("Fallback path used.", zap.String("path", "script"))
		Sync()

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "Log output should be valid JSON")
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "Fallback path used.", entry["msg"])
		assert.Equal(t, "script", entry["path"])
	})

	t.Run("should respect the configured level", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{Level: "warn", Format: "json"})

		GetLogger().Info("dropped")
		Sync()

		assert.Empty(t, buf.String())
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "uiharness.log")
		initToBuffer(t, config.LoggerConfig{Level: "debug", Format: "console", LogFile: logFile, MaxSize: 1})

		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.")
		// The file sink is JSON regardless of the console format.
		assert.True(t, strings.HasPrefix(strings.TrimSpace(string(content)), "{"))
	})

	t.Run("should only initialize once", func(t *testing.T) {
		buf := initToBuffer(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "First"})
		first := GetLogger()

		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "Second"}, zapcore.AddSync(&bytes.Buffer{}))
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("test")
		Sync()
		assert.Contains(t, buf.String(), "First")
		assert.NotContains(t, buf.String(), "Second")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("should return a fallback logger if not initialized", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("should return the global logger after initialization", func(t *testing.T) {
		initToBuffer(t, config.LoggerConfig{Level: "info"})
		assert.Same(t, globalLogger.Load(), GetLogger())
	})
}

func TestComponent(t *testing.T) {
	buf := initToBuffer(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "svc"})

	Component(nil, "tracker").Info("hello")
	Sync()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "svc.tracker", entry["logger"])
}
