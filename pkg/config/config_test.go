package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Canvas.Width)
	assert.Equal(t, 600, cfg.Canvas.Height)
	assert.Equal(t, "#1f2937", cfg.Canvas.Background)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, "native", cfg.Engine.Provider)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "canvas:\n  width: 640\n  height: 480\nbackground:\n  engine: grabcut\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("PROMPTCANVAS_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 640, cfg.Canvas.Width)
	assert.Equal(t, 480, cfg.Canvas.Height)
	assert.Equal(t, "grabcut", cfg.Background.Engine)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadRejectsInvalidCanvas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("canvas:\n  width: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
