// Package metrics wraps the seven telemetry counters the engine's public
// contract names (spec.md §6), grounded on necyber-goclaw's pkg/metrics
// Manager: a private prometheus.Registry per engine instance rather than
// the global default, so tests never collide when run in parallel.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds the counters/histogram backing the memory engine's
// telemetry contract. Exposing them over HTTP is the host process's job;
// this package only registers and updates them.
type Registry struct {
	reg *prometheus.Registry

	RecallHit    prometheus.Counter
	RecallMiss   prometheus.Counter
	CaptureSaved prometheus.Counter
	CaptureDeduped prometheus.Counter

	CaptureDroppedSafety  *prometheus.CounterVec
	CaptureDroppedLowConf prometheus.Counter

	PromptChars prometheus.Histogram
}

// New constructs a Registry backed by a fresh private prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		RecallHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_recall_hit",
			Help: "Number of retrievals that returned at least one entry.",
		}),
		RecallMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_recall_miss",
			Help: "Number of retrievals that returned no entries.",
		}),
		CaptureSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_capture_saved",
			Help: "Number of candidates inserted as new rows.",
		}),
		CaptureDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_capture_deduped",
			Help: "Number of candidates merged into an existing row.",
		}),
		CaptureDroppedSafety: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memory_capture_dropped_safety",
			Help: "Number of candidates rejected by the safety filter, by reason.",
		}, []string{"reason"}),
		CaptureDroppedLowConf: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_capture_dropped_low_conf",
			Help: "Number of candidates dropped by the confidence/importance gate.",
		}),
		PromptChars: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memory_prompt_chars",
			Help:    "Rendered recall block length in characters.",
			Buckets: []float64{0, 100, 200, 400, 800, 1200, 1600, 2000, 2400},
		}),
	}

	reg.MustRegister(
		r.RecallHit, r.RecallMiss, r.CaptureSaved, r.CaptureDeduped,
		r.CaptureDroppedSafety, r.CaptureDroppedLowConf, r.PromptChars,
	)
	return r
}

// Gatherer exposes the underlying registry for a host process to serve
// over /metrics; the engine itself never binds an HTTP listener.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
