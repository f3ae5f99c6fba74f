// Command gatewayd runs the gateway: it loads configuration, wires the
// filter registry/loader/file watcher, and serves HTTP requests through
// the filter pipeline, the same top-level wiring shape as the teacher's
// own cmd/skipper/main.go (parse config, initialize logging/metrics, call
// into the library's Run), but driving this module's own pipeline.Runner
// instead of skipper's proxy.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/edgerun/gatewayd/config"
	"github.com/edgerun/gatewayd/engine"
	"github.com/edgerun/gatewayd/filters"
	"github.com/edgerun/gatewayd/filters/builtin"
	"github.com/edgerun/gatewayd/filters/script"
	"github.com/edgerun/gatewayd/filewatch"
	"github.com/edgerun/gatewayd/loader"
	"github.com/edgerun/gatewayd/logging"
	"github.com/edgerun/gatewayd/metrics"
	"github.com/edgerun/gatewayd/pipeline"
	"github.com/edgerun/gatewayd/registry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.New()
	if err := cfg.Parse(); err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}

	logging.Init(logging.Options{
		ApplicationLogJSONEnabled: cfg.ApplicationLogJSON,
		AccessLogDisabled:         cfg.AccessLogDisabled,
		AccessLogJSONEnabled:      cfg.AccessLogJSONEnabled,
	})

	m := metrics.New(metrics.Options{
		Listener:             cfg.MetricsListener,
		EnableDebugGCMetrics: cfg.DebugGCMetrics,
		EnableRuntimeMetrics: cfg.RuntimeMetrics,
	})

	reg := registry.New()
	ld := loader.New(reg, m)

	ld.Register(builtin.NewFlowID())
	ld.Register(builtin.NewErrorFilter())
	if cfg.HealthCheckPath != "" {
		ld.Register(builtin.NewHealthCheck(cfg.HealthCheckPath))
	}

	fm := filewatch.New(ld, watchedDirs(cfg))
	fm.Start(cfg.PollInterval)
	defer fm.Shutdown()

	proc := engine.New(ld, engine.MetricsUsageNotifier{Metrics: m})
	runner := pipeline.New(proc, m)

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      runner,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("gatewayd: listening on %s", cfg.Address)
		errc <- server.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server stopped: %w", err)
		}
	case sig := <-sigc:
		log.Infof("gatewayd: received %s, shutting down", sig)
		return server.Close()
	}
	return nil
}

// watchedDirs builds one filewatch.WatchedDir per configured kind directory,
// skipping any that weren't set; an operator may run the gateway with only
// a subset of stages backed by scripts and rely on the builtin filters for
// the rest.
func watchedDirs(cfg *config.Config) []filewatch.WatchedDir {
	var dirs []filewatch.WatchedDir
	add := func(kind filters.Kind, dir string) {
		if dir == "" {
			return
		}
		dirs = append(dirs, filewatch.WatchedDir{
			Kind:      kind,
			Directory: dir,
			Compiler:  script.New(kind),
			Suffix:    cfg.ScriptSuffix,
		})
	}
	add(filters.KindPre, cfg.PreDirectory)
	add(filters.KindRoute, cfg.RouteDirectory)
	add(filters.KindPost, cfg.PostDirectory)
	add(filters.KindError, cfg.ErrorDirectory)
	return dirs
}
