// internal/logging/logger_test.go
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		config := &LoggerConfig{
			Level:  LevelInfo,
			Format: FormatJSON,
		}
		err := config.Validate()
		assert.NoError(t, err)
	})

	t.Run("rejects invalid level", func(t *testing.T) {
		config := &LoggerConfig{Level: "invalid"}
		err := config.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "level")
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		config := &LoggerConfig{Format: "logfmt"}
		err := config.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "format")
	})

	t.Run("applies defaults", func(t *testing.T) {
		config := &LoggerConfig{}
		config.ApplyDefaults()
		assert.Equal(t, LevelInfo, config.Level)
		assert.Equal(t, FormatConsole, config.Format)
		assert.NotNil(t, config.Output)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with defaults", func(t *testing.T) {
		logger, err := NewLogger(nil)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := NewLogger(&LoggerConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("writes json entries", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(&LoggerConfig{Level: LevelDebug, Format: FormatJSON, Output: &buf})
		require.NoError(t, err)

		logger.Debug("step passed", zap.String("step", "create user"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "step passed", entry["msg"])
		assert.Equal(t, "create user", entry["step"])
	})

	t.Run("filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
		assert.Contains(t, buf.String(), "WARN")
	})
}
