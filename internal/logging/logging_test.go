package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kemicofa/rtc/internal/config"
)

func TestNewDefaultsToInfoJSON(t *testing.T) {
	log := New(config.LogConfig{})
	assert.NotNil(t, log)
	assert.False(t, log.Enabled(nil, slog.LevelDebug))
	assert.True(t, log.Enabled(nil, slog.LevelInfo))
}

func TestNewHonorsDebugLevel(t *testing.T) {
	log := New(config.LogConfig{Level: "debug"})
	assert.True(t, log.Enabled(nil, slog.LevelDebug))
}

func TestNewTextFormatProducesPlainOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtc.log")
	New(config.LogConfig{Format: "text", Output: "file", FilePath: path}).Info("hello")

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(out), "msg=hello")
}
