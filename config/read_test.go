package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9090,
		"log_level": "debug",
		"redis_url": "redis://example:6379/1",
		"chat_prefix": "rc",
		"history_limit": 50
	}`)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "redis://example:6379/1", cfg.RedisURL)
	assert.Equal(t, "rc", cfg.ChatPrefix)
	assert.Equal(t, 50, cfg.HistoryLimit)
}

func TestReadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "redchat", cfg.ChatPrefix)
	assert.Equal(t, 1000, cfg.HistoryLimit)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
