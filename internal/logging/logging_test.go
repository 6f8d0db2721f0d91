package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/options_desk/internal/config"
)

func TestNew_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewWithOutput(config.EnvironmentConfig{LogLevel: "warn"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	logger.Info("hidden")
	logger.WithField("ticker", "SPY").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "ticker=SPY")
}

func TestNew_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "desk.log")
	var buf bytes.Buffer
	logger, closer, err := NewWithOutput(config.EnvironmentConfig{
		LogLevel: "info",
		LogFile:  config.LogConfig{Path: path, MaxSizeMB: 1},
	}, &buf)
	require.NoError(t, err)

	logger.WithField("trade_id", "t1").Info("scored")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "scored", entry["msg"])
	assert.Equal(t, "t1", entry["trade_id"])
	assert.Contains(t, buf.String(), "scored")
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(config.EnvironmentConfig{LogLevel: "loud"})
	assert.Error(t, err)
}
