package xsink

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		At:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Level:   LevelWarn,
		Message: "disk almost full",
		Fields: []Field{
			Str("mount", "/var"),
			Int64("free_mb", 512),
			Bool("readonly", false),
			Dur("check", 250*time.Millisecond),
		},
		Tags: []string{"storage", "ops"},
	}
}

func TestTextFormatter(t *testing.T) {
	t.Parallel()

	line := (&TextFormatter{}).Format(sampleRecord())
	assert.Contains(t, line, "ts=2025-06-01T12:00:00Z")
	assert.Contains(t, line, "level=warn")
	assert.Contains(t, line, `msg="disk almost full"`)
	assert.Contains(t, line, "mount=/var")
	assert.Contains(t, line, "free_mb=512")
	assert.Contains(t, line, "readonly=false")
	assert.Contains(t, line, "check=250ms")
	assert.Contains(t, line, "tags=storage,ops")
	assert.NotContains(t, line, "\n", "formatters emit a single line")
}

func TestTextFormatterCustomTimeLayout(t *testing.T) {
	t.Parallel()

	f := &TextFormatter{TimeFormat: "15:04:05"}
	line := f.Format(sampleRecord())
	assert.Contains(t, line, "ts=12:00:00")
}

func TestJSONFormatter(t *testing.T) {
	t.Parallel()

	r := sampleRecord()
	r.Err = &ErrInfo{Name: "*errors.fundamental", Message: "no space left", Stack: "goroutine 1..."}
	line := JSONFormatter{}.Format(r)

	var decoded struct {
		TS      string         `json:"ts"`
		Level   string         `json:"level"`
		Message string         `json:"msg"`
		Fields  map[string]any `json:"fields"`
		Tags    []string       `json:"tags"`
		Error   *struct {
			Name    string `json:"name"`
			Message string `json:"message"`
			Stack   string `json:"stack"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))

	assert.Equal(t, "2025-06-01T12:00:00Z", decoded.TS)
	assert.Equal(t, "warn", decoded.Level)
	assert.Equal(t, "disk almost full", decoded.Message)
	assert.Equal(t, "/var", decoded.Fields["mount"])
	assert.Equal(t, float64(512), decoded.Fields["free_mb"])
	assert.Equal(t, []string{"storage", "ops"}, decoded.Tags)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, "no space left", decoded.Error.Message)
}

func TestJSONFormatterOmitsEmpty(t *testing.T) {
	t.Parallel()

	line := JSONFormatter{}.Format(rec(LevelInfo, "bare"))
	assert.NotContains(t, line, `"fields"`)
	assert.NotContains(t, line, `"tags"`)
	assert.NotContains(t, line, `"error"`)
}

func TestFormattersArePureOverErrorFields(t *testing.T) {
	t.Parallel()

	r := rec(LevelError, "with field error")
	r.Fields = []Field{Err("cause", errors.New("inner"))}

	text := (&TextFormatter{}).Format(r)
	assert.Contains(t, text, `cause="inner"`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(JSONFormatter{}.Format(r)), &decoded))
	fields := decoded["fields"].(map[string]any)
	assert.Equal(t, "inner", fields["cause"])
}
