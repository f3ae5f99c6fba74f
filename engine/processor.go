// Package engine implements the FilterProcessor: the execution core that
// runs every filter of a given kind against the current RequestContext,
// in ascending (order, name), recording timing and status and notifying
// the observability hooks as it goes. It is grounded on the teacher's
// proxy.applyFiltersToRequest/applyFiltersToResponse loops and, further
// back, on the original Netflix Zuul FilterProcessor.runFilters /
// processZuulFilter this spec distills (see
// _examples/original_source/zuul-core).
package engine

import (
	"fmt"

	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
	"github.com/edgerun/gatewayd/loader"
	"github.com/edgerun/gatewayd/metrics"
)

// UsageNotifier is the pluggable counter sink invoked once per filter
// invocation. The default implementation increments a metrics counter;
// tests can substitute their own to assert on call patterns.
type UsageNotifier interface {
	Notify(filterName string, kind filters.Kind, status filters.Status)
}

// MetricsUsageNotifier reports every filter invocation to a metrics.Metrics
// sink as one counter per (filter name, kind, status), keyed
// gatewayd.filter.<name>.<kind>.<status>.
type MetricsUsageNotifier struct {
	Metrics metrics.Metrics
}

func (n MetricsUsageNotifier) Notify(filterName string, kind filters.Kind, status filters.Status) {
	if n.Metrics == nil {
		return
	}
	n.Metrics.IncFilterCounter(filterName, string(kind), string(status))
}

// Processor is the FilterProcessor: it executes all filters of a kind
// against a RequestContext.
type Processor struct {
	Loader   *loader.Loader
	Notifier UsageNotifier
}

func New(l *loader.Loader, notifier UsageNotifier) *Processor {
	if notifier == nil {
		notifier = MetricsUsageNotifier{}
	}
	return &Processor{Loader: l, Notifier: notifier}
}

// RunFiltersOfKind runs every filter registered for kind, in order, against
// ctx. It returns the OR-fold of every boolean SUCCESS value, a value the
// original Zuul computed without any caller ever consuming it (spec.md §9
// design notes); kept here for parity but not promised to mean anything.
// A FAILED filter aborts the loop and the error is returned unchanged.
func (p *Processor) RunFiltersOfKind(kind filters.Kind, ctx *gwcontext.RequestContext) (bool, error) {
	if ctx.DebugRouting {
		ctx.AddRoutingDebug(fmt.Sprintf("Invoking {%s} type filters", kind))
	}

	sequence := p.Loader.FiltersByKind(kind)
	aggregate := false

	for _, f := range sequence {
		var before *gwcontext.RequestContext
		if ctx.DebugRouting {
			before = ctx.Copy()
			ctx.AddRoutingDebug(fmt.Sprintf("Filter %s %d %s", f.Kind(), f.Order(), f.Name()))
		}

		result := filters.RunFilter(f, ctx)
		ctx.AddFilterExecutionSummary(f.Name(), string(result.Status), result.ElapsedMs)
		p.Notifier.Notify(f.Name(), f.Kind(), result.Status)

		if ctx.DebugRouting && result.Status == filters.StatusSuccess {
			ctx.AddRoutingDebug(fmt.Sprintf("Filter {%s TYPE:%s ORDER:%d} Execution time = %dms",
				f.Name(), f.Kind(), f.Order(), result.ElapsedMs))
			compareContextState(ctx, before)
		}

		switch result.Status {
		case filters.StatusFailed:
			return aggregate, result.Err
		case filters.StatusSuccess:
			if b, ok := result.Value.(bool); ok {
				aggregate = aggregate || b
			}
		}
	}

	return aggregate, nil
}

// RunStage is a convenience wrapper for the four pipeline stages: any
// *gwcontext.GatewayError from RunFiltersOfKind propagates unchanged;
// anything else is wrapped as an UNCAUGHT_EXCEPTION_IN_<STAGE>_FILTER
// error. filters.RunFilter already converts panics, so in practice this
// only ever sees *gwcontext.GatewayError, but the wrap is kept to honor the
// contract even if a future Compiler implementation returns a plain error.
func (p *Processor) RunStage(kind filters.Kind, ctx *gwcontext.RequestContext) error {
	_, err := p.RunFiltersOfKind(kind, ctx)
	if err == nil {
		return nil
	}
	if gwErr, ok := err.(*gwcontext.GatewayError); ok {
		return gwErr
	}
	return gwcontext.NewUncaughtError(string(kind), "", err)
}

// compareContextState appends a routing-debug line describing any
// StateBag keys that changed between before and ctx's current state,
// mirroring Zuul's Debug.compareContextState.
func compareContextState(ctx, before *gwcontext.RequestContext) {
	if before == nil {
		return
	}
	for k, v := range ctx.StateBag {
		if bv, ok := before.StateBag[k]; !ok || bv != v {
			ctx.AddRoutingDebug(fmt.Sprintf("  %s changed to [%v]", k, v))
		}
	}
}
