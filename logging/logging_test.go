package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/meenmo/curvecal/config"
	"github.com/meenmo/curvecal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("unit failed", zap.Int("unit", 2))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "unit failed", entry["msg"])
	assert.EqualValues(t, 2, entry["unit"])
}

func TestFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calibrate.log")
	logger, err := logging.New(config.LogConfig{Level: "debug", Format: "console", Output: path})
	require.NoError(t, err)
	logger.Debug("iteration", zap.Float64("residual", 1e-3))
	require.NoError(t, logger.Sync())

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "DEBUG")
	assert.Contains(t, string(body), "iteration")
}

func TestUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := logging.New(config.LogConfig{Level: "chatty"})
	require.Error(t, err)
}
