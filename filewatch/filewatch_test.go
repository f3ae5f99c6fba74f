package filewatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
	"github.com/edgerun/gatewayd/loader"
	"github.com/edgerun/gatewayd/registry"
)

type passthroughFilter struct {
	name string
	kind filters.Kind
}

func (f *passthroughFilter) Name() string                                        { return f.name }
func (f *passthroughFilter) Kind() filters.Kind                                  { return f.kind }
func (f *passthroughFilter) Order() int                                          { return 0 }
func (f *passthroughFilter) Disabled() bool                                      { return false }
func (f *passthroughFilter) ShouldRun(ctx *gwcontext.RequestContext) bool        { return true }
func (f *passthroughFilter) Run(ctx *gwcontext.RequestContext) (interface{}, error) { return nil, nil }

type byFilenameCompiler struct{ kind filters.Kind }

func (c byFilenameCompiler) Compile(sourceBytes []byte, filename string) (filters.Filter, error) {
	return &passthroughFilter{name: filepath.Base(filename), kind: c.kind}, nil
}

func TestScanPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte("a"), 0o644))

	l := loader.New(registry.New(), nil)
	m := New(l, []WatchedDir{{Kind: filters.KindPre, Directory: dir, Compiler: byFilenameCompiler{kind: filters.KindPre}, Suffix: ".lua"}})
	m.Start(time.Hour)
	defer m.Shutdown()

	assert.Len(t, l.FiltersByKind(filters.KindPre), 1)
}

func TestScanIgnoresNonMatchingSuffix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	l := loader.New(registry.New(), nil)
	m := New(l, []WatchedDir{{Kind: filters.KindPre, Directory: dir, Compiler: byFilenameCompiler{kind: filters.KindPre}, Suffix: ".lua"}})
	m.Start(time.Hour)
	defer m.Shutdown()

	assert.Empty(t, l.FiltersByKind(filters.KindPre))
}

func TestScanRemovesDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.lua")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	l := loader.New(registry.New(), nil)
	m := New(l, []WatchedDir{{Kind: filters.KindPre, Directory: dir, Compiler: byFilenameCompiler{kind: filters.KindPre}, Suffix: ".lua"}})
	m.Start(time.Hour)
	defer m.Shutdown()

	require.Len(t, l.FiltersByKind(filters.KindPre), 1)

	require.NoError(t, os.Remove(path))
	m.scan()

	assert.Empty(t, l.FiltersByKind(filters.KindPre))
}

func TestShutdownStopsPoller(t *testing.T) {
	dir := t.TempDir()
	l := loader.New(registry.New(), nil)
	m := New(l, []WatchedDir{{Kind: filters.KindPre, Directory: dir, Compiler: byFilenameCompiler{kind: filters.KindPre}, Suffix: ".lua"}})
	m.Start(50 * time.Millisecond)
	m.Shutdown()
}
