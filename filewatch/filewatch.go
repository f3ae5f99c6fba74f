// Package filewatch implements the FilterFileManager: a background
// scanner that polls configured directories for filter scripts and feeds
// additions, changes, and removals into the FilterLoader, the same
// responsibility the teacher's eskipfile.WatchClient has for route
// definition files, generalized here from a single file to a set of
// per-kind directories and from one parsed document to many independently
// cached filter scripts.
package filewatch

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/gwcontext"
	"github.com/edgerun/gatewayd/loader"
)

const defaultPollInterval = 5 * time.Second

// WatchedDir binds one filesystem directory to the kind and Compiler that
// should be used for every matching file found in it. The FileManager is
// configured with one WatchedDir per kind (PRE/ROUTE/POST/CUSTOM...).
type WatchedDir struct {
	Kind      filters.Kind
	Directory string
	Compiler  filters.Compiler
	// Suffix restricts eligible files, e.g. ".lua". Empty matches every
	// regular file.
	Suffix string
}

// FileManager periodically scans a set of WatchedDirs and publishes
// additions, changes, and removals to a Loader. Exactly one poller
// goroutine runs per FileManager.
type FileManager struct {
	dirs     []WatchedDir
	loader   *loader.Loader
	interval time.Duration

	seen map[string]struct{} // paths observed on the previous scan, for removal detection

	quit chan struct{}
	done chan struct{}
}

func New(l *loader.Loader, dirs []WatchedDir) *FileManager {
	return &FileManager{
		dirs:   dirs,
		loader: l,
		seen:   make(map[string]struct{}),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start spawns the poller at interval (defaulting to 5s when <= 0) and
// performs one synchronous scan before returning, so that the filter set
// is populated by the time Start returns.
func (m *FileManager) Start(interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	m.interval = interval

	m.scan()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.scan()
			case <-m.quit:
				return
			}
		}
	}()
}

// Shutdown signals the poller to stop and blocks until it has.
func (m *FileManager) Shutdown() {
	close(m.quit)
	<-m.done
}

func (m *FileManager) scan() {
	current := make(map[string]struct{})

	for _, wd := range m.dirs {
		entries, err := os.ReadDir(wd.Directory)
		if err != nil {
			log.Errorf("filewatch: reading directory %s: %v", wd.Directory, err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if wd.Suffix != "" && !strings.HasSuffix(entry.Name(), wd.Suffix) {
				continue
			}

			path := filepath.Join(wd.Directory, entry.Name())
			current[path] = struct{}{}

			src, err := os.ReadFile(path)
			if err != nil {
				log.Errorf("filewatch: reading file %s: %v", path, err)
				continue
			}

			if _, err := m.loader.GetOrCreate(path, src, wd.Compiler); err != nil {
				var cfgErr *gwcontext.ConfigError
				if ok := asConfigError(err, &cfgErr); ok {
					log.Errorf("filewatch: %v", cfgErr)
					continue
				}
				log.Errorf("filewatch: compiling %s: %v", path, err)
			}
		}
	}

	for path := range m.seen {
		if _, ok := current[path]; !ok {
			m.loader.Remove(path)
		}
	}

	m.seen = current
}

func asConfigError(err error, target **gwcontext.ConfigError) bool {
	cfgErr, ok := err.(*gwcontext.ConfigError)
	if ok {
		*target = cfgErr
	}
	return ok
}
