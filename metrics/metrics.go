// Package metrics implements collection of gateway performance counters on
// top of the Coda Hale-style registry from github.com/rcrowley/go-metrics,
// the same library and JSON rendering convention the teacher's own metrics
// package uses. It tracks per-filter, per-kind timers and counters plus the
// overall request timer, and can optionally expose them over an HTTP
// listener as a JSON snapshot.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

const (
	KeyFilterCounter      = "gatewayd.filter.%s.%s.%s" // name, kind, status
	KeyStageTimer         = "gatewayd.stage.%s"        // pre|route|post|error
	KeyRequestTimer       = "gatewayd.request"
	KeyLoaderCompileError = "gatewayd.loader.compile_error"
	KeyLoaderReload       = "gatewayd.loader.reload"
)

// Metrics is the sink the engine, pipeline, and loader packages report to.
// It is implemented by *Registry; tests can substitute a no-op or recording
// fake satisfying the same interface.
type Metrics interface {
	IncFilterCounter(filterName, kind, status string)
	MeasureStage(kind string, start time.Time)
	MeasureRequest(start time.Time)
	IncCompileError()
	IncReload()
}

// Registry wraps a go-metrics registry with the counters and timers this
// gateway cares about, and knows how to render itself as the JSON document
// served at /metrics.
type Registry struct {
	reg gometrics.Registry
}

// Options configures New, mirroring the teacher's metrics.Options.
type Options struct {
	// Listener is the address metrics are served from, e.g. ":9911". Empty
	// disables the listener; the registry is still usable for recording.
	Listener string

	EnableDebugGCMetrics bool
	EnableRuntimeMetrics bool
}

// New creates a Registry and, if Listener is set, starts serving /metrics
// from it in the background.
func New(o Options) *Registry {
	r := gometrics.NewRegistry()

	if o.EnableDebugGCMetrics {
		gometrics.RegisterDebugGCStats(r)
		go gometrics.CaptureDebugGCStats(r, 5*time.Second)
	}
	if o.EnableRuntimeMetrics {
		gometrics.RegisterRuntimeMemStats(r)
		go gometrics.CaptureRuntimeMemStats(r, 5*time.Second)
	}

	m := &Registry{reg: r}

	if o.Listener != "" {
		log.Infof("metrics: listening on %s/metrics", o.Listener)
		go func() {
			if err := http.ListenAndServe(o.Listener, m.Handler()); err != nil {
				log.Errorf("metrics: listener stopped: %v", err)
			}
		}()
	} else {
		log.Info("metrics: listener disabled")
	}

	return m
}

func (m *Registry) counter(key string) gometrics.Counter {
	return m.reg.GetOrRegister(key, gometrics.NewCounter()).(gometrics.Counter)
}

func (m *Registry) timer(key string) gometrics.Timer {
	return m.reg.GetOrRegister(key, gometrics.NewTimer()).(gometrics.Timer)
}

func (m *Registry) IncFilterCounter(filterName, kind, status string) {
	m.counter(fmt.Sprintf(KeyFilterCounter, filterName, kind, status)).Inc(1)
}

func (m *Registry) MeasureStage(kind string, start time.Time) {
	m.timer(fmt.Sprintf(KeyStageTimer, kind)).UpdateSince(start)
}

func (m *Registry) MeasureRequest(start time.Time) {
	m.timer(KeyRequestTimer).UpdateSince(start)
}

func (m *Registry) IncCompileError() {
	m.counter(KeyLoaderCompileError).Inc(1)
}

func (m *Registry) IncReload() {
	m.counter(KeyLoaderReload).Inc(1)
}

// Handler serves the current snapshot of every registered metric as JSON,
// the same rendering the teacher's metrics.MetricsHandler produces.
func (m *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot(m.reg)); err != nil {
			log.Errorf("metrics: encoding snapshot: %v", err)
		}
	})
}

func snapshot(reg gometrics.Registry) map[string]map[string]interface{} {
	data := make(map[string]map[string]interface{})
	reg.Each(func(name string, metric interface{}) {
		values := make(map[string]interface{})
		switch m := metric.(type) {
		case gometrics.Counter:
			values["count"] = m.Count()
		case gometrics.Gauge:
			values["value"] = m.Value()
		case gometrics.Timer:
			t := m.Snapshot()
			ps := t.Percentiles([]float64{0.5, 0.75, 0.95, 0.99, 0.999})
			values["count"] = t.Count()
			values["min"] = t.Min()
			values["max"] = t.Max()
			values["mean"] = t.Mean()
			values["median"] = ps[0]
			values["95%"] = ps[2]
			values["99%"] = ps[3]
			values["mean.rate"] = t.RateMean()
		default:
			values["error"] = fmt.Sprintf("unknown metrics type %T", m)
		}
		data[name] = values
	})
	return data
}
