// Package loader implements the FilterLoader: compile-on-demand with
// content-hash caching, grouped into deterministically ordered per-kind
// sequences that are republished atomically on every mutation so that a
// reader mid-stage never observes a half-updated sequence.
package loader

import (
	"io"
	"sort"
	"sync"
	"sync/atomic"

	xxhash "github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"

	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
	"github.com/edgerun/gatewayd/registry"
)

// ReloadNotifier receives hot-reload activity counts as the Loader
// processes script compiles, the same decoupling the engine package uses
// for filter-execution counters via its UsageNotifier. *metrics.Registry
// satisfies this interface directly.
type ReloadNotifier interface {
	IncCompileError()
	IncReload()
}

// Loader compiles filter scripts on demand, caching by content digest so
// that an unchanged file is never recompiled, and derives a sorted,
// per-kind sequence view on every mutation.
type Loader struct {
	mu       sync.Mutex
	hashes   map[string]uint64
	byPath   map[string]filters.Filter
	registry *registry.Registry
	sequence map[filters.Kind]*atomic.Pointer[[]filters.Filter]
	notifier ReloadNotifier
}

// New builds a Loader backed by reg. notifier may be nil, in which case
// compile activity is not counted anywhere.
func New(reg *registry.Registry, notifier ReloadNotifier) *Loader {
	return &Loader{
		hashes:   make(map[string]uint64),
		byPath:   make(map[string]filters.Filter),
		registry: reg,
		sequence: make(map[filters.Kind]*atomic.Pointer[[]filters.Filter]),
		notifier: notifier,
	}
}

// GetOrCreate compiles sourceBytes found at path with compiler, unless its
// digest is unchanged from the last compile, in which case the cached
// instance is returned untouched. A compile failure leaves the previous
// instance (if any) in place and is reported as a *gwcontext.ConfigError;
// it is the FileManager's responsibility to log it and keep scanning.
func (l *Loader) GetOrCreate(path string, sourceBytes []byte, compiler filters.Compiler) (filters.Filter, error) {
	digest := xxhash.Sum64(sourceBytes)

	l.mu.Lock()
	if prevDigest, ok := l.hashes[path]; ok && prevDigest == digest {
		cached := l.byPath[path]
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	compiled, err := compiler.Compile(sourceBytes, path)
	if err != nil {
		l.mu.Lock()
		old := l.byPath[path]
		l.mu.Unlock()
		l.incCompileError()
		return old, gwcontext.NewConfigError(path, err)
	}

	l.mu.Lock()
	old := l.byPath[path]
	l.hashes[path] = digest
	l.byPath[path] = compiled
	l.registry.Put(compiled)
	l.republishLocked(compiled.Kind())
	if old != nil && old.Kind() != compiled.Kind() {
		l.republishLocked(old.Kind())
	}
	l.mu.Unlock()

	closeIfPossible(old, compiled)
	l.incReload()
	return compiled, nil
}

func (l *Loader) incCompileError() {
	if l.notifier != nil {
		l.notifier.IncCompileError()
	}
}

func (l *Loader) incReload() {
	if l.notifier != nil {
		l.notifier.IncReload()
	}
}

// Register inserts a pre-built filter instance directly into byPath,
// keyed by its own name rather than a script path, and republishes its
// kind's sequence. This is how builtins (not backed by any script file,
// e.g. the bundled ErrorFilter/HealthCheck/FlowID) join the same
// byPath map the FileManager populates for scripted filters, so the
// Processor's FiltersByKind sees them without any separate read path.
func (l *Loader) Register(f filters.Filter) {
	key := "builtin:" + f.Name()

	l.mu.Lock()
	old := l.byPath[key]
	l.byPath[key] = f
	l.registry.Put(f)
	l.republishLocked(f.Kind())
	if old != nil && old.Kind() != f.Kind() {
		l.republishLocked(old.Kind())
	}
	l.mu.Unlock()

	closeIfPossible(old, f)
}

// Remove drops the entry for path, if any, and invalidates its kind's
// sequence.
func (l *Loader) Remove(path string) {
	l.mu.Lock()
	old, ok := l.byPath[path]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.byPath, path)
	delete(l.hashes, path)
	l.registry.Remove(old.Name())
	l.republishLocked(old.Kind())
	l.mu.Unlock()

	closeIfPossible(old, nil)
}

// FiltersByKind returns the current sorted sequence of filters registered
// for kind, ascending by (order, name). The returned slice is an immutable
// snapshot; it never changes underneath the caller even if the Loader
// republishes a newer one concurrently.
func (l *Loader) FiltersByKind(kind filters.Kind) []filters.Filter {
	ptr := l.seqPointer(kind)
	seq := ptr.Load()
	if seq == nil {
		l.mu.Lock()
		l.republishLocked(kind)
		l.mu.Unlock()
		seq = ptr.Load()
	}
	return *seq
}

func (l *Loader) seqPointer(kind filters.Kind) *atomic.Pointer[[]filters.Filter] {
	l.mu.Lock()
	ptr, ok := l.sequence[kind]
	if !ok {
		ptr = &atomic.Pointer[[]filters.Filter]{}
		l.sequence[kind] = ptr
	}
	l.mu.Unlock()
	return ptr
}

// republishLocked recomputes kind's sorted sequence from byPath and
// atomically swaps it in. Callers must hold l.mu.
func (l *Loader) republishLocked(kind filters.Kind) {
	var list []filters.Filter
	for _, f := range l.byPath {
		if f.Kind() == kind {
			list = append(list, f)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Order() != list[j].Order() {
			return list[i].Order() < list[j].Order()
		}
		return list[i].Name() < list[j].Name()
	})

	ptr, ok := l.sequence[kind]
	if !ok {
		ptr = &atomic.Pointer[[]filters.Filter]{}
		l.sequence[kind] = ptr
	}
	ptr.Store(&list)
}

// closeIfPossible releases resources held by a filter instance being
// replaced or removed (e.g. a script.filter's *lua.LState), as long as it
// isn't the same instance being kept.
func closeIfPossible(old, kept filters.Filter) {
	if old == nil || old == kept {
		return
	}
	if closer, ok := old.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warnf("loader: closing replaced filter %s: %v", old.Name(), err)
		}
	}
}
