package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
		SetRedactPII(true)
	})
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestStructuredEntry(t *testing.T) {
	buf := captureLogs(t)
	Info("campaign deployed", "campaign_id", "c1", "count", 5)

	entry := lastEntry(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "campaign deployed", entry["msg"])
	assert.Equal(t, "c1", entry["campaign_id"])
	assert.Equal(t, "5", entry["count"])
	assert.NotEmpty(t, entry["time"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t)
	SetLevel(WARN)

	Debug("hidden")
	Info("hidden too")
	Warn("shown")
	entry := lastEntry(t, buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, ERROR, ParseLevel(" ERROR "))
	assert.Equal(t, INFO, ParseLevel("info"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestPIIRedaction(t *testing.T) {
	buf := captureLogs(t)
	SetRedactPII(true)

	Info("email delivered", "target_email", "john.doe@firstnational.com")
	entry := lastEntry(t, buf)
	assert.Equal(t, "jo***@firstnational.com", entry["target_email"])

	// Addresses embedded in arbitrary fields are caught too.
	Info("note", "detail", "reply went to alice@example.com yesterday")
	entry = lastEntry(t, buf)
	assert.Equal(t, "reply went to al***@example.com yesterday", entry["detail"])
}

func TestRedactionDisabled(t *testing.T) {
	buf := captureLogs(t)
	SetRedactPII(false)

	Info("email delivered", "target_email", "john.doe@firstnational.com")
	entry := lastEntry(t, buf)
	assert.Equal(t, "john.doe@firstnational.com", entry["target_email"])
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@bank.com", RedactEmail("john@bank.com"))
	assert.Equal(t, "***@bank.com", RedactEmail("jo@bank.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
	assert.Equal(t, "***@***", RedactEmail("@bank.com"))
	assert.Equal(t, "***@***", RedactEmail("john@"))
}
