package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn, time.UTC)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn message", lines[0]["msg"])
	assert.Equal(t, "error message", lines[1]["msg"])
}

func TestSlogLogger_Fields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC)

	log.Info("alert stored",
		String("alert_id", "a-1"),
		Int("count", 3),
		Float64("value", 36.5),
		Bool("resolved", false),
		Error(errors.New("boom")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "a-1", lines[0]["alert_id"])
	assert.InDelta(t, 3, lines[0]["count"], 0)
	assert.InDelta(t, 36.5, lines[0]["value"], 0.0001)
	assert.Equal(t, false, lines[0]["resolved"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestSlogLogger_With(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC).With(String("component", "dispatcher"))

	log.Info("first")
	log.Info("second")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, "dispatcher", l["component"])
	}
}

func TestErrorField_Nil(t *testing.T) {
	t.Parallel()
	f := Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Empty(t, f.Value)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"WARN":    LogLevelWarn,
		" error ": LogLevelError,
		"info":    LogLevelInfo,
		"verbose": LogLevelInfo,
		"":        LogLevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}
