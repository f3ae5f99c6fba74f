// Package filters defines the contract every filter obeys: a kind, an
// order, a guard, an action, and the wrapper that turns running one into a
// typed result instead of a bare panic or error return. Filter instances
// are immutable once compiled; replacing one happens by swapping the
// instance held by the registry, never by mutating it in place, since a
// filter may be shared across many concurrently running pipelines.
package filters

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/edgerun/gatewayd/gwcontext"
)

// Kind identifies which stage a filter belongs to. The four pipeline stages
// and the static/healthcheck kinds are predeclared; anything else is an
// arbitrary user-defined kind,
// invocable by name through the FilterProcessor's recursive sub-chain
// support (e.g. a "route" filter running a "static" sub-chain).
type Kind string

const (
	KindPre         Kind = "pre"
	KindRoute       Kind = "route"
	KindPost        Kind = "post"
	KindError       Kind = "error"
	KindStatic      Kind = "static"
	KindHealthcheck Kind = "healthcheck"
)

// Filter is a pluggable unit of request processing with a kind, order,
// guard, and action. Filters must be pure with respect to filter-local
// state; all cross-filter communication goes through the RequestContext.
type Filter interface {
	// Name is a stable identity used for logging, metrics, and as the
	// secondary sort key that breaks order ties deterministically.
	Name() string

	Kind() Kind

	// Order determines execution position within a stage; smaller runs
	// first.
	Order() int

	// Disabled lets a filter be turned off without removing it from the
	// registry, e.g. backed by dynamic config.
	Disabled() bool

	ShouldRun(ctx *gwcontext.RequestContext) bool

	// Run performs the filter's action. It may return a value (ignored
	// unless it is a bool, see Processor) or raise a *gwcontext.GatewayError
	// for any user-visible failure.
	Run(ctx *gwcontext.RequestContext) (interface{}, error)
}

// Status is the outcome of running one filter through RunFilter.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusSkipped  Status = "SKIPPED"
	StatusDisabled Status = "DISABLED"
)

// Result is the typed outcome of RunFilter: exactly one of Value/Err is
// meaningful, selected by Status.
type Result struct {
	Status    Status
	Value     interface{}
	Err       error
	ElapsedMs int64
}

// RunFilter is the guarded wrapper every filter invocation goes through.
// It returns SKIPPED/DISABLED without calling Run at all, and converts any
// panic raised from inside Run into a FAILED result carrying a
// *gwcontext.GatewayError, so that a single misbehaving filter can never take
// down the worker running the pipeline.
func RunFilter(f Filter, ctx *gwcontext.RequestContext) Result {
	if f.Disabled() {
		return Result{Status: StatusDisabled}
	}
	if !f.ShouldRun(ctx) {
		return Result{Status: StatusSkipped}
	}

	start := time.Now()
	value, err := runGuarded(f, ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return Result{Status: StatusFailed, Err: err, ElapsedMs: elapsed}
	}
	return Result{Status: StatusSuccess, Value: value, ElapsedMs: elapsed}
}

func runGuarded(f Filter, ctx *gwcontext.RequestContext) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = gwcontext.NewUncaughtError(string(f.Kind()), f.Name(), fmt.Errorf("%v\n%s", r, debug.Stack()))
		}
	}()
	return f.Run(ctx)
}
