// Package metrics exposes Prometheus collectors for traversal runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"datahunt/pkg/types"
)

const namespace = "datahunt"

// Recorder counts hops and outcomes. It satisfies traversal.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	outcomes   *prometheus.CounterVec
	fetches    *prometheus.CounterVec
	hopsPerRun prometheus.Histogram
	downloads  *prometheus.CounterVec
}

// New builds a Recorder on its own registry, with Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "traversal_outcomes_total",
				Help:      "Traversal runs by terminal outcome",
			},
			[]string{"kind"},
		),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "traversal_fetches_total",
				Help:      "Fetches made by the traversal engine",
			},
			[]string{"kind", "result"}, // kind: page|file|fallback, result: ok|error
		),
		hopsPerRun: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "traversal_hops",
				Help:      "Number of hops recorded per traversal run",
				Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 15},
			},
		),
		downloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "File downloads by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveHop counts a fetch made by the engine.
func (r *Recorder) ObserveHop(hop types.Hop) {
	if r == nil {
		return
	}
	result := "ok"
	if hop.Error != "" {
		result = "error"
	}
	r.fetches.WithLabelValues(string(hop.Kind), result).Inc()
}

// ObserveOutcome counts a finished run and its trail length.
func (r *Recorder) ObserveOutcome(out types.Outcome) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(string(out.Kind)).Inc()
	r.hopsPerRun.Observe(float64(len(out.Trail)))
}

// ObserveDownload counts a download attempt.
func (r *Recorder) ObserveDownload(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.downloads.WithLabelValues("error").Inc()
		return
	}
	r.downloads.WithLabelValues("ok").Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
