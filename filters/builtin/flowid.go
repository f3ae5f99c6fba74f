package builtin

import (
	"github.com/google/uuid"

	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
)

const FlowIDHeader = "X-Gateway-Flow-Id"

// FlowID is the bundled PRE-kind filter that stamps every request with a
// correlation identifier, reusing the client-supplied FlowIDHeader when
// present and otherwise minting a fresh one, the same reuse-or-mint
// contract the teacher's flowid filter implements for route tracing.
// Unlike the teacher's version this mints with google/uuid rather than a
// custom generator, since nothing about the id format here is
// performance-sensitive.
type FlowID struct{}

func NewFlowID() *FlowID { return &FlowID{} }

func (f *FlowID) Name() string       { return "builtin-flowid" }
func (f *FlowID) Kind() filters.Kind { return filters.KindPre }
func (f *FlowID) Order() int         { return -1 << 20 }
func (f *FlowID) Disabled() bool     { return false }

func (f *FlowID) ShouldRun(ctx *gwcontext.RequestContext) bool {
	return ctx.Request != nil
}

func (f *FlowID) Run(ctx *gwcontext.RequestContext) (interface{}, error) {
	id := ctx.Request.Header.Get(FlowIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Set("flowid", id)
	ctx.ResponseHeaders = append(ctx.ResponseHeaders, gwcontext.HeaderPair{Name: FlowIDHeader, Value: id})
	return nil, nil
}
