package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	log, err := New("debug", "console")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = New("bogus", "json")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))

	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestNewWithOutput_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	log, err := NewWithOutput("info", "json", path)
	require.NoError(t, err)

	log.Info("client connected", zap.String("addr", "127.0.0.1:5000"))
	log.Debug("dropped")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "client connected", entry["msg"])
	assert.Equal(t, "moonkv", entry["logger"])
	assert.Equal(t, "127.0.0.1:5000", entry["addr"])
	assert.Contains(t, entry, "ts")
}
