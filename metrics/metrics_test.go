package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncFilterCounterAccumulates(t *testing.T) {
	m := New(Options{})
	m.IncFilterCounter("auth", "pre", "SUCCESS")
	m.IncFilterCounter("auth", "pre", "SUCCESS")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestMeasureStageRegistersTimer(t *testing.T) {
	m := New(Options{})
	m.MeasureStage("route", time.Now().Add(-time.Millisecond))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "gatewayd.stage.route")
}

func TestIncCompileErrorAccumulates(t *testing.T) {
	m := New(Options{})
	m.IncCompileError()
	m.IncCompileError()
	m.IncCompileError()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "gatewayd.loader.compile_error")
	assert.Contains(t, body, `"count":3`)
}

func TestIncReloadAccumulates(t *testing.T) {
	m := New(Options{})
	m.IncReload()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "gatewayd.loader.reload")
	assert.Contains(t, body, `"count":1`)
}
