package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lhaig/axiom/internal/config"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("verified", zap.String("status", "valid"), zap.Int("goals", 3))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "debug is below the configured level")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "verified", entry["msg"])
	assert.Equal(t, "valid", entry["status"])
	assert.EqualValues(t, 3, entry["goals"])
	assert.Contains(t, entry, "ts")
}

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(config.LogConfig{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)
	log.Debug("loading", zap.String("structure", "Group"))
	require.NoError(t, log.Sync())
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), `"structure": "Group"`)
}

func TestInvalidFormat(t *testing.T) {
	_, err := NewWriter(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axiom.log")
	cfg := config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 7}

	sink := RotatingFile(cfg)
	assert.Equal(t, path, sink.Filename)
	assert.Equal(t, 1, sink.MaxSize)

	log, err := NewWriter(cfg, sink)
	require.NoError(t, err)
	log.Info("written to file")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
