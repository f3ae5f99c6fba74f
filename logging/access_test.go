package logging

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogAccessWritesCombinedFormatLine(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{AccessLogOutput: &buf})

	req := httptest.NewRequest("GET", "/widgets", nil)
	req.RequestURI = "/widgets"
	LogAccess(&AccessEntry{
		Request:      req,
		StatusCode:   200,
		ResponseSize: 42,
		Duration:     15 * time.Millisecond,
		RequestTime:  time.Now(),
		FlowID:       "abc-123",
	})

	out := buf.String()
	assert.Contains(t, out, `"GET /widgets HTTP/1.1"`)
	assert.Contains(t, out, "200 42")
	assert.Contains(t, out, "abc-123")
}

func TestLogAccessNilEntryIsNoop(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{AccessLogOutput: &buf})
	LogAccess(nil)
	assert.Empty(t, buf.String())
}

func TestLogAccessDisabledSkipsOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{AccessLogOutput: &buf, AccessLogDisabled: true})
	accessLog = nil
	LogAccess(&AccessEntry{StatusCode: 500})
	assert.Empty(t, buf.String())
}
