package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

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
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNew_Backends(t *testing.T) {
	testCases := []struct {
		backend string
		msgKey  string
		lvlKey  string
		lvlVal  string
	}{
		{BackendSlog, "msg", "level", "WARN"},
		{BackendZap, "message", "level", "warn"},
	}
	for _, tc := range testCases {
		t.Run(tc.backend, func(t *testing.T) {
			var buf bytes.Buffer
			logger, sync, err := New(Config{Backend: tc.backend, Level: "info", Output: &buf})
			require.NoError(t, err)

			child := logger.With("component", "scanner")
			child.Debug("hidden")
			child.Warn("cache refresh failed", "paths", 3)
			require.NoError(t, sync())

			lines := decodeLines(t, &buf)
			require.Len(t, lines, 1, "debug is below the configured level")
			assert.Equal(t, "cache refresh failed", lines[0][tc.msgKey])
			assert.Equal(t, tc.lvlVal, lines[0][tc.lvlKey])
			assert.Equal(t, "scanner", lines[0]["component"])
			assert.Equal(t, 3.0, lines[0]["paths"])
		})
	}
}

func TestNewSlog_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewSlog(&buf, "debug", FormatText)
	require.NoError(t, err)
	logger.Debug("path cache rebuilt", "paths", 10)
	assert.Contains(t, buf.String(), `msg="path cache rebuilt" paths=10`)
}

func TestNew_Errors(t *testing.T) {
	_, _, err := New(Config{Backend: "logrus"})
	assert.Error(t, err)
	_, _, err = New(Config{Level: "loud"})
	assert.Error(t, err)
	_, _, err = New(Config{Backend: BackendZap, Level: "loud"})
	assert.Error(t, err)
	_, err = NewSlog(&bytes.Buffer{}, "", "xml")
	assert.Error(t, err)
}
