// Package script implements the gateway's default FilterCompiler: it
// turns a Lua source blob into an executable filters.Filter using
// github.com/yuin/gopher-lua, the same embedding the teacher module uses
// for its own scripted filters. Each compiled filter owns a dedicated
// *lua.LState; filter instances are never shared across concurrent
// requests at the Lua level even though many pipelines may call into the
// same *script.filter sequentially (requests are processed one at a time
// per worker, and a filter instance itself is immutable/stateless between
// invocations apart from the interpreter state, which callers must not
// mutate from their own goroutines).
package script

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
)

// Compiler is a filters.Compiler backed by gopher-lua. Every directory the
// FilterFileManager watches is fixed to one filter kind (PRE/ROUTE/POST/...),
// so the kind is baked into the Compiler instance rather than threaded
// through Compile's signature.
type Compiler struct {
	Kind filters.Kind
}

func New(kind filters.Kind) *Compiler {
	return &Compiler{Kind: kind}
}

func (c *Compiler) Compile(sourceBytes []byte, filename string) (filters.Filter, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openLibs(L)

	if err := L.DoString(string(sourceBytes)); err != nil {
		L.Close()
		return nil, fmt.Errorf("compiling %s: %w", filename, err)
	}

	runFn := L.GetGlobal("run")
	if runFn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("compiling %s: script does not define a run(ctx) function", filename)
	}

	order := 0
	if n, ok := L.GetGlobal("order").(lua.LNumber); ok {
		order = int(n)
	}

	disabled := false
	if b, ok := L.GetGlobal("disabled").(lua.LBool); ok {
		disabled = bool(b)
	}

	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &filter{
		state:    L,
		name:     name,
		kind:     c.Kind,
		order:    order,
		disabled: disabled,
		source:   filename,
	}, nil
}

type filter struct {
	mu       sync.Mutex
	state    *lua.LState
	name     string
	kind     filters.Kind
	order    int
	disabled bool
	source   string
}

func (f *filter) Name() string        { return f.name }
func (f *filter) Kind() filters.Kind  { return f.kind }
func (f *filter) Order() int          { return f.order }
func (f *filter) Disabled() bool      { return f.disabled }

func (f *filter) ShouldRun(ctx *gwcontext.RequestContext) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn := f.state.GetGlobal("should_run")
	if fn.Type() != lua.LTFunction {
		return true
	}

	table := newContextTable(f.state, ctx)
	if err := f.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, table); err != nil {
		return true
	}
	ret := f.state.Get(-1)
	f.state.Pop(1)
	return lua.LVAsBool(ret)
}

func (f *filter) Run(ctx *gwcontext.RequestContext) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn := f.state.GetGlobal("run")
	table := newContextTable(f.state, ctx)
	err := f.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, table)
	if err != nil {
		return nil, toGatewayError(err)
	}

	ret := f.state.Get(-1)
	f.state.Pop(1)
	if b, ok := ret.(lua.LBool); ok {
		return bool(b), nil
	}
	return nil, nil
}

// Close releases the underlying Lua interpreter. The Loader calls this when
// a filter instance is replaced or removed so that a hot-reloaded script
// doesn't leak its interpreter state.
func (f *filter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Close()
	return nil
}

// toGatewayError converts a Lua call failure into a *gwcontext.GatewayError.
// A script that calls error({status=N, cause="...", message="..."}) gets
// its fields honored; anything else becomes an UNCAUGHT_EXCEPTION.
func toGatewayError(err error) *gwcontext.GatewayError {
	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return gwcontext.NewUncaughtError("SCRIPT", "lua", err)
	}

	table, ok := apiErr.Object.(*lua.LTable)
	if !ok {
		return gwcontext.NewUncaughtError("SCRIPT", "lua", err)
	}

	status := 500
	if n, ok := table.RawGetString("status").(lua.LNumber); ok {
		status = int(n)
	}
	cause := ""
	if s, ok := table.RawGetString("cause").(lua.LString); ok {
		cause = string(s)
	}
	message := ""
	if s, ok := table.RawGetString("message").(lua.LString); ok {
		message = string(s)
	}
	return gwcontext.NewGatewayError(status, cause, message)
}
