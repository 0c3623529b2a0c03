package common

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestAppLogger_LogFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newAppLogger(&buf, LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	assert.Zero(t, buf.Len(), "Debug/Info messages should be filtered when level is Warn")

	logger.Warn("warn message")
	assert.Contains(t, buf.String(), "[WARN]")

	buf.Reset()
	logger.Error("error message")
	assert.Contains(t, buf.String(), "[ERROR]")
}

func TestAppLogger_LogFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := newAppLogger(&buf, LevelDebug)

	logger.Info("Persisting %d peers", 3)

	output := buf.String()
	assert.Contains(t, output, time.Now().Format("2006/01/02"))
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "logger_test.go:")
	assert.Contains(t, output, "Persisting 3 peers")
}

func TestAppLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newAppLogger(&buf, LevelError)

	logger.SetLevel(LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestAppLogger_FileLogging(t *testing.T) {
	var console bytes.Buffer
	logger := newAppLogger(&console, LevelInfo)
	dir := t.TempDir()

	require.NoError(t, logger.EnableFileLogging(dir))
	logger.Info("to both")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, console.String(), "to both")
}

func TestLogRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")
	require.NoError(t, os.WriteFile(logFile, []byte(strings.Repeat("x", 1024*1024)), 0600))

	logger := &AppLogger{
		level:       LevelInfo,
		console:     &bytes.Buffer{},
		maxFileSize: 512 * 1024,
		maxBackups:  2,
	}
	logger.rotateIfNeeded(logFile)

	_, err := os.Stat(logFile)
	assert.True(t, os.IsNotExist(err), "original log file should be moved away")

	matches, _ := filepath.Glob(filepath.Join(dir, "test.log.*"))
	assert.NotEmpty(t, matches, "rotated archive should exist")
}

func TestWrapError(t *testing.T) {
	wrapped := WrapError(ErrExternalTool, "wg genkey")

	require.Error(t, wrapped)
	assert.Equal(t, "wg genkey: external tool failed", wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrExternalTool))
	assert.Nil(t, WrapError(nil, "context"))
}

func TestServiceStatus_String(t *testing.T) {
	assert.Equal(t, "Running", ServiceRunning.String())
	assert.Equal(t, "Stopped", ServiceStopped.String())
	assert.Equal(t, "Not Installed", ServiceNotInstalled.String())
	assert.Equal(t, "Unknown", ServiceUnknown.String())
	assert.Equal(t, "Unknown", ServiceStatus(42).String())
}

func TestParseServiceAction(t *testing.T) {
	for _, verb := range []string{"start", "stop", "restart"} {
		action, err := ParseServiceAction(strings.ToUpper(verb))
		require.NoError(t, err)
		assert.Equal(t, verb, action.String())
	}

	_, err := ParseServiceAction("reload")
	assert.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0600))
	require.NoError(t, os.WriteFile(dst, []byte("old and longer"), 0644))

	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.True(t, FileExists(dst))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}
