package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "warn message", lines[0]["message"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.DebugLevel)

	logger.Info("retrying",
		"attempt", 2,
		"delay", 1500*time.Millisecond,
		"error", errors.New("boom"),
		42, "ignored non-string key",
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(2), lines[0]["attempt"])
	assert.Equal(t, float64(1500), lines[0]["delay"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.DebugLevel).With("component", "datalake")

	logger.Debug("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "datalake", lines[0]["component"])
}

func TestNopLoggerWritesNothing(t *testing.T) {
	logger := Nop()
	assert.NotPanics(t, func() {
		logger.Error("nothing to see", "k", "v")
	})
}

func TestGlobalLogger(t *testing.T) {
	original := Global()
	defer SetGlobal(original)

	var buf bytes.Buffer
	SetGlobal(New(&buf, zerolog.InfoLevel))
	Global().Info("from global")
	assert.Contains(t, buf.String(), "from global")

	SetGlobal(nil)
	assert.NotNil(t, Global())
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
		want   zerolog.Level
	}{
		{name: "debug json", level: "debug", format: "json", want: zerolog.DebugLevel},
		{name: "uppercase level", level: "WARN", format: "json", want: zerolog.WarnLevel},
		{name: "unknown level", level: "chatty", format: "console", want: zerolog.InfoLevel},
		{name: "empty level", level: "", format: "", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewFromConfig(tt.level, tt.format)
			assert.Equal(t, tt.want, logger.Zerolog().GetLevel())
		})
	}
}
