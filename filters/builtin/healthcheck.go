package builtin

import (
	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
)

// HealthCheck is a trivial native filter answering liveness probes without
// ever reaching a backend. It runs as a PRE filter, immediately after
// builtin-flowid, so that a probe never pays for route lookup or a backend
// round trip; mirroring the teacher's legacy filters/healthcheck.go, which
// did the same short-circuiting for its own HEALTHCHECK kind, but wired
// here into PRE since this gateway has no dedicated HEALTHCHECK stage in
// its pipeline.
type HealthCheck struct {
	Path string
}

func NewHealthCheck(path string) *HealthCheck {
	return &HealthCheck{Path: path}
}

func (h *HealthCheck) Name() string       { return "builtin-healthcheck" }
func (h *HealthCheck) Kind() filters.Kind { return filters.KindPre }
func (h *HealthCheck) Order() int         { return -1<<20 + 1 }
func (h *HealthCheck) Disabled() bool     { return false }

func (h *HealthCheck) ShouldRun(ctx *gwcontext.RequestContext) bool {
	return ctx.Request != nil && ctx.Request.URL.Path == h.Path
}

func (h *HealthCheck) Run(ctx *gwcontext.RequestContext) (interface{}, error) {
	ctx.ResponseStatusCode = 200
	ctx.ResponseBody = []byte("ok")
	ctx.SendGatewayResponse = false
	return true, nil
}
