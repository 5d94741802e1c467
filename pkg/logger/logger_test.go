package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)
	log.Info("hello", zap.String("k", "v"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "chatty", Format: "console", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestMultiLogger_WritesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogRunEvent("run_started", zap.String("id", "abc"), zap.String("url", "https://example.com/a.zip"))
	ml.LogRunEvent("run_completed", zap.String("id", "abc"))
	ml.LogAppError("Failed to process run", zap.String("id", "def"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)

	runs, err := reader.ReadLogs(CategoryRun, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run_started", runs[0].Message)
	assert.Equal(t, "run", runs[0].Category)
	assert.Equal(t, "abc", runs[0].Fields["id"])

	last, err := reader.ReadLogs(CategoryRun, time.Now(), 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "run_completed", last[0].Message)

	errs, err := reader.ReadLogs(CategoryError, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "error", errs[0].Level)

	found, err := reader.SearchLogs(CategoryRun, time.Now(), "EXAMPLE.com", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "run_started", found[0].Message)
}

func TestMultiLogger_RequiresLogsDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{})
	assert.Error(t, err)
}

func TestLogReader_MissingFile(t *testing.T) {
	entries, err := NewLogReader(t.TempDir()).ReadLogs(CategoryRun, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryRun))
	assert.True(t, ValidCategory(CategoryError))
	assert.False(t, ValidCategory("download"))
}
