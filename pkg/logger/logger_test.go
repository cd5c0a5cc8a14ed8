package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerUnknownLevelFallsBack(t *testing.T) {
	log := NewLogger("not-a-level")
	require.NotNil(t, log)
	log.Infof("still works: %d", 1)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.log")
	log := NewLogger("debug", path)
	log.Infof("hello %s", "file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestContextRoundTrip(t *testing.T) {
	log := NewLogger("error")
	ctx := NewContext(context.Background(), log)
	assert.Equal(t, log, FromContext(ctx))
}

func TestFromContextDefault(t *testing.T) {
	log := FromContext(context.Background())
	require.NotNil(t, log)
	log.Debugf("default logger is usable")
}

func TestWithModuleAndFields(t *testing.T) {
	log := NewLogger("error")
	scoped := log.WithModule("test").WithFields(map[string]interface{}{"k": "v"})
	require.NotNil(t, scoped)
	scoped.Errorf("scoped loggers must not panic")
}
