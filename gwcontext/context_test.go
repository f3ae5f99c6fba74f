package gwcontext

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInitializesMaps(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/", nil), httptest.NewRecorder())
	assert.True(t, ctx.SendGatewayResponse)
	assert.NotNil(t, ctx.StateBag)
	assert.NotNil(t, ctx.EventProperties)
}

func TestSetErrorHandledIsMonotonic(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/", nil), httptest.NewRecorder())
	assert.False(t, ctx.ErrorHandled())
	ctx.SetErrorHandled()
	assert.True(t, ctx.ErrorHandled())
	ctx.SetErrorHandled()
	assert.True(t, ctx.ErrorHandled())
}

func TestCopyDoesNotAliasStateBag(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/", nil), httptest.NewRecorder())
	ctx.Set("a", 1)

	cp := ctx.Copy()
	cp.Set("a", 2)

	v, _ := ctx.Get("a")
	assert.Equal(t, 1, v)
	cv, _ := cp.Get("a")
	assert.Equal(t, 2, cv)
}

func TestUnsetReleasesEverything(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/", nil), httptest.NewRecorder())
	ctx.Set("a", 1)
	ctx.Route = "foo"
	ctx.AddFilterExecutionSummary("f", "SUCCESS", 1)

	ctx.Unset()

	assert.Nil(t, ctx.Request)
	assert.Nil(t, ctx.StateBag)
	assert.Equal(t, "", ctx.Route)
	assert.Nil(t, ctx.FilterExecutionSummary)
}

func TestWithContextAndCurrent(t *testing.T) {
	ctx := New(httptest.NewRequest("GET", "/", nil), httptest.NewRecorder())
	wrapped := WithContext(httptest.NewRequest("GET", "/", nil).Context(), ctx)
	assert.Same(t, ctx, Current(wrapped))
}
