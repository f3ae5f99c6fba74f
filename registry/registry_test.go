package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
)

type noop struct{ name string }

func (n *noop) Name() string                                   { return n.name }
func (n *noop) Kind() filters.Kind                              { return filters.KindPre }
func (n *noop) Order() int                                      { return 0 }
func (n *noop) Disabled() bool                                  { return false }
func (n *noop) ShouldRun(ctx *gwcontext.RequestContext) bool    { return true }
func (n *noop) Run(ctx *gwcontext.RequestContext) (interface{}, error) { return nil, nil }

func TestPutGetRemove(t *testing.T) {
	r := New()
	f := &noop{name: "a"}
	r.Put(f)
	assert.Same(t, f, r.Get("a"))

	r.Remove("a")
	assert.Nil(t, r.Get("a"))
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	r := New()
	r.Put(&noop{name: "a"})

	snap := r.Snapshot()
	r.Put(&noop{name: "b"})

	assert.Len(t, snap, 1)
	assert.Len(t, r.Snapshot(), 2)
}
