// Package pipeline implements the PipelineRunner: the per-request state
// machine that drives a RequestContext through PRE, ROUTE, and POST,
// diverting to ERROR on failure. Its control flow is grounded directly on
// the original Netflix Zuul ZuulServlet.service/error method pair (see
// _examples/original_source/zuul-core/.../http/ZuulServlet.java), carried
// over unchanged because that nested try/catch shape is exactly what
// spec.md's pipeline module specifies; the teacher's own proxy.Proxy.ServeHTTP
// supplied the surrounding net/http plumbing this is adapted into.
package pipeline

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/edgerun/gatewayd/engine"
	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
	"github.com/edgerun/gatewayd/logging"
	"github.com/edgerun/gatewayd/metrics"
)

// Runner drives one RequestContext through the PRE -> ROUTE -> POST pipeline,
// diverting to ERROR exactly once on failure, and is safe for concurrent use
// across many requests since all of its state is either immutable or
// confined to the RequestContext passed into Run.
type Runner struct {
	Processor *engine.Processor
	Metrics   metrics.Metrics
}

func New(p *engine.Processor, m metrics.Metrics) *Runner {
	return &Runner{Processor: p, Metrics: m}
}

// ServeHTTP implements http.Handler so a Runner can be mounted directly on
// an *http.ServeMux or wrapped by further middleware.
func (r *Runner) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := gwcontext.New(req, w)
	r.Run(ctx)
}

// Run executes the full pipeline against ctx and writes the final response.
// It always calls ctx.Unset before returning, the Go analogue of
// ZuulServlet.service's finally block, so that nothing from this request
// leaks into whatever reuses ctx's underlying memory next.
func (r *Runner) Run(ctx *gwcontext.RequestContext) {
	start := time.Now()
	ctx.MarkEngineRan()
	defer ctx.Unset()
	defer r.Metrics.MeasureRequest(start)
	defer r.logAccess(ctx, start)

	if err := r.runStage(filters.KindPre, ctx); err != nil {
		r.handleError(ctx, err)
		r.runPostQuietly(ctx)
		r.writeResponse(ctx)
		return
	}

	if err := r.runStage(filters.KindRoute, ctx); err != nil {
		r.handleError(ctx, err)
		r.runPostQuietly(ctx)
		r.writeResponse(ctx)
		return
	}

	if err := r.runStage(filters.KindPost, ctx); err != nil {
		r.handleError(ctx, err)
		r.writeResponse(ctx)
		return
	}

	r.writeResponse(ctx)
}

func (r *Runner) runStage(kind filters.Kind, ctx *gwcontext.RequestContext) error {
	start := time.Now()
	defer r.Metrics.MeasureStage(string(kind), start)
	return r.Processor.RunStage(kind, ctx)
}

// runPostQuietly runs POST after a PRE/ROUTE failure has already been
// handled, matching ZuulServlet's unconditional postRoute() call in both
// of its earlier catch blocks. A second failure here is logged and
// swallowed: POST has already had its one chance, and there is no further
// stage left for ERROR to hand off to.
func (r *Runner) runPostQuietly(ctx *gwcontext.RequestContext) {
	if err := r.runStage(filters.KindPost, ctx); err != nil {
		log.Errorf("pipeline: post-route failed after error handling: %v", err)
	}
}

// handleError installs err as ctx.Throwable and runs the ERROR stage. A
// failure inside ERROR itself is logged and swallowed, never retried and
// never promoted back into PRE/ROUTE/POST, so a broken error filter can
// never cause an infinite loop.
func (r *Runner) handleError(ctx *gwcontext.RequestContext, err error) {
	gwErr, ok := err.(*gwcontext.GatewayError)
	if !ok {
		gwErr = gwcontext.NewUncaughtError("UNKNOWN", "", err)
	}
	ctx.Throwable = gwErr

	if err := r.runStage(filters.KindError, ctx); err != nil {
		log.Errorf("pipeline: error-stage filter failed: %v", err)
	}

	if !ctx.ErrorHandled() {
		writeFallbackError(ctx, gwErr)
	}
}

// writeFallbackError produces a minimal response when no ERROR filter is
// registered to handle ctx.Throwable, so that a gateway with no configured
// error filters still returns something sane instead of hanging the client.
func writeFallbackError(ctx *gwcontext.RequestContext, gwErr *gwcontext.GatewayError) {
	ctx.SetErrorHandled()
	if ctx.ResponseStatusCode == 0 {
		ctx.ResponseStatusCode = gwErr.StatusCode
	}
	if ctx.ResponseBody == nil {
		ctx.ResponseBody = []byte(gwErr.Message)
	}
}

// logAccess emits one access log line for the completed request. It must
// run before ctx.Unset, since it reads ctx.Request and ctx.StateBag.
func (r *Runner) logAccess(ctx *gwcontext.RequestContext, start time.Time) {
	flowID, _ := ctx.Get("flowid")
	flowIDStr, _ := flowID.(string)
	logging.LogAccess(&logging.AccessEntry{
		Request:      ctx.Request,
		StatusCode:   ctx.ResponseStatusCode,
		ResponseSize: int64(len(ctx.ResponseBody)),
		Duration:     time.Since(start),
		RequestTime:  start,
		FlowID:       flowIDStr,
	})
}

// writeResponse flushes whatever the pipeline accumulated in ctx onto the
// real http.ResponseWriter. It is the only place the pipeline touches the
// wire, mirroring how Zuul defers all actual writing to
// RequestContext.getResponse() until the servlet's processing is complete.
func (r *Runner) writeResponse(ctx *gwcontext.RequestContext) {
	if ctx.ResponseWriter == nil {
		return
	}

	for _, h := range ctx.ResponseHeaders {
		ctx.ResponseWriter.Header().Add(h.Name, h.Value)
	}

	status := ctx.ResponseStatusCode
	if status == 0 {
		status = http.StatusOK
	}
	ctx.ResponseWriter.WriteHeader(status)

	if len(ctx.ResponseBody) > 0 {
		if _, err := ctx.ResponseWriter.Write(ctx.ResponseBody); err != nil {
			log.Errorf("pipeline: writing response body: %v", err)
		}
	}
}
