package pipeline

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgerun/gatewayd/engine"
	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
	"github.com/edgerun/gatewayd/loader"
	"github.com/edgerun/gatewayd/metrics"
	"github.com/edgerun/gatewayd/registry"
)

type fn struct {
	name string
	kind filters.Kind
	run  func(ctx *gwcontext.RequestContext) (interface{}, error)
}

func (f *fn) Name() string       { return f.name }
func (f *fn) Kind() filters.Kind { return f.kind }
func (f *fn) Order() int         { return 0 }
func (f *fn) Disabled() bool     { return false }
func (f *fn) ShouldRun(ctx *gwcontext.RequestContext) bool {
	return true
}
func (f *fn) Run(ctx *gwcontext.RequestContext) (interface{}, error) {
	return f.run(ctx)
}

type stub struct{ f filters.Filter }

func (s stub) Compile(sourceBytes []byte, filename string) (filters.Filter, error) {
	return s.f, nil
}

func newRunner(t *testing.T, fs ...filters.Filter) *Runner {
	t.Helper()
	reg := registry.New()
	l := loader.New(reg, nil)
	for i, f := range fs {
		_, err := l.GetOrCreate(f.Name()+string(rune('0'+i)), []byte(f.Name()), stub{f: f})
		require.NoError(t, err)
	}
	p := engine.New(l, nil)
	return New(p, metrics.New(metrics.Options{}))
}

func TestRunHappyPathWritesResponse(t *testing.T) {
	route := &fn{name: "route", kind: filters.KindRoute, run: func(ctx *gwcontext.RequestContext) (interface{}, error) {
		ctx.ResponseStatusCode = 200
		ctx.ResponseBody = []byte("hello")
		return nil, nil
	}}
	r := newRunner(t, route)

	w := httptest.NewRecorder()
	ctx := gwcontext.New(httptest.NewRequest("GET", "/", nil), w)
	r.Run(ctx)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}

func TestRunPreFailureStillRunsPostAndError(t *testing.T) {
	var postRan bool
	pre := &fn{name: "pre", kind: filters.KindPre, run: func(ctx *gwcontext.RequestContext) (interface{}, error) {
		return nil, gwcontext.NewGatewayError(403, "FORBIDDEN", "nope")
	}}
	post := &fn{name: "post", kind: filters.KindPost, run: func(ctx *gwcontext.RequestContext) (interface{}, error) {
		postRan = true
		return nil, nil
	}}
	errf := &fn{name: "err", kind: filters.KindError, run: func(ctx *gwcontext.RequestContext) (interface{}, error) {
		ctx.SetErrorHandled()
		ctx.ResponseStatusCode = ctx.Throwable.StatusCode
		ctx.ResponseBody = []byte(ctx.Throwable.Message)
		return nil, nil
	}}
	r := newRunner(t, pre, post, errf)

	w := httptest.NewRecorder()
	ctx := gwcontext.New(httptest.NewRequest("GET", "/", nil), w)
	r.Run(ctx)

	assert.True(t, postRan)
	assert.Equal(t, 403, w.Code)
	assert.Equal(t, "nope", w.Body.String())
}

func TestRunPostFailureDoesNotRePostRoute(t *testing.T) {
	var postCalls int
	post := &fn{name: "post", kind: filters.KindPost, run: func(ctx *gwcontext.RequestContext) (interface{}, error) {
		postCalls++
		return nil, gwcontext.NewGatewayError(500, "POST_BROKEN", "boom")
	}}
	errf := &fn{name: "err", kind: filters.KindError, run: func(ctx *gwcontext.RequestContext) (interface{}, error) {
		ctx.SetErrorHandled()
		ctx.ResponseStatusCode = 500
		return nil, nil
	}}
	r := newRunner(t, post, errf)

	w := httptest.NewRecorder()
	ctx := gwcontext.New(httptest.NewRequest("GET", "/", nil), w)
	r.Run(ctx)

	assert.Equal(t, 1, postCalls)
	assert.Equal(t, 500, w.Code)
}

func TestRunWithoutErrorFilterFallsBack(t *testing.T) {
	pre := &fn{name: "pre", kind: filters.KindPre, run: func(ctx *gwcontext.RequestContext) (interface{}, error) {
		return nil, gwcontext.NewGatewayError(418, "TEAPOT", "short and stout")
	}}
	r := newRunner(t, pre)

	w := httptest.NewRecorder()
	ctx := gwcontext.New(httptest.NewRequest("GET", "/", nil), w)
	r.Run(ctx)

	assert.Equal(t, 418, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}
