package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	logger := NewLogger(cfg)
	require.NotNil(t, logger)

	logger.Debug("should not appear")
	logger.Info("should appear", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
	assert.Contains(t, out, "key=value")
}

func TestLoggerRespectsDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Debug("debug line", "n", 1)
	assert.True(t, strings.Contains(buf.String(), "debug line"))
}

func TestDefaultLoggerSingleton(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Info("via package func")
	assert.Contains(t, buf.String(), "via package func")
}

func TestPrintfCompat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Output: &buf})
	logger.Printf("count=%d", 7)
	assert.Contains(t, buf.String(), "count=7")
}
