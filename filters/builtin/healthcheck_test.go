package builtin

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgerun/gatewayd/gwcontext"
)

func TestHealthCheckOnlyRunsOnConfiguredPath(t *testing.T) {
	h := NewHealthCheck("/healthcheck")

	match := gwcontext.New(httptest.NewRequest("GET", "/healthcheck", nil), httptest.NewRecorder())
	assert.True(t, h.ShouldRun(match))

	other := gwcontext.New(httptest.NewRequest("GET", "/widgets", nil), httptest.NewRecorder())
	assert.False(t, h.ShouldRun(other))
}

func TestHealthCheckRunWritesOK(t *testing.T) {
	h := NewHealthCheck("/healthcheck")
	ctx := gwcontext.New(httptest.NewRequest("GET", "/healthcheck", nil), httptest.NewRecorder())

	_, err := h.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, ctx.ResponseStatusCode)
	assert.Equal(t, "ok", string(ctx.ResponseBody))
	assert.False(t, ctx.SendGatewayResponse)
}
