package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level slog.Level, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, level, format))
	t.Cleanup(func() { _ = Configure(io.Discard, slog.LevelInfo, FormatText) })
	return &buf
}

func TestConfigure_JSONIncludesCategory(t *testing.T) {
	buf := capture(t, slog.LevelDebug, FormatJSON)

	Debug(CatCarry, "carry applied", "from", 3, "to", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "carry applied", record["msg"])
	assert.Equal(t, "carry", record["cat"])
	assert.Equal(t, float64(3), record["from"])
	assert.Equal(t, float64(2), record["to"])
	assert.Equal(t, "DEBUG", record["level"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	buf := capture(t, slog.LevelWarn, FormatText)

	Debug(CatCLI, "hidden")
	Info(CatCLI, "hidden too")
	Warn(CatCLI, "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "cat=cli")
}

func TestErrorErr(t *testing.T) {
	buf := capture(t, slog.LevelInfo, FormatText)

	ErrorErr(CatConfig, "reading config", errors.New("boom"), "path", "/tmp/x.yaml")

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "path=/tmp/x.yaml")
}

func TestWith_BindsAttributes(t *testing.T) {
	buf := capture(t, slog.LevelDebug, FormatText)

	l := With("session", "abc")
	l.Info(CatCLI, "first", "n", 1)
	l.Debug(CatCLI, "second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "session=abc")
	}
	assert.Contains(t, lines[0], "n=1")
	assert.NotContains(t, lines[1], "n=1")
}

func TestConfigure_UnknownFormat(t *testing.T) {
	err := Configure(io.Discard, slog.LevelInfo, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: " warn ", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultDiscards(t *testing.T) {
	// Nothing configured: must not panic.
	Info(CatCLI, "dropped")
	Error(CatCLI, "dropped")
}
