// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/rally.report/internal/trajectory"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
)

// Metrics holds the analysis service metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	InFlight    prometheus.Gauge

	// Pipeline metrics
	FramesAnalyzed prometheus.Counter
	Detections     prometheus.Counter
	DetectorErrors prometheus.Counter
	Bounces        prometheus.Counter

	// Storage metrics
	StoreErrors *prometheus.CounterVec
}

// NewMetrics registers the metrics on reg. A nil reg uses the default
// registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "rally"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by outcome",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of analysis runs",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "in_flight",
			Help:      "Number of analysis runs currently executing",
		}),
		FramesAnalyzed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "frames_analyzed_total",
			Help:      "Total number of frames submitted to the detector",
		}),
		Detections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "detections_total",
			Help:      "Total number of accepted ball detections",
		}),
		DetectorErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "detector_errors_total",
			Help:      "Total number of per-frame detector failures",
		}),
		Bounces: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "bounces_total",
			Help:      "Total number of bounces detected",
		}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of storage errors by operation",
		}, []string{"operation"}),
	}
}

// Handler serves the metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RunStarted marks a run as in flight and returns a func that must be called
// with the run's result when it finishes.
func (m *Metrics) RunStarted() func(res trajectory.Result, elapsed time.Duration) {
	if m == nil {
		return func(trajectory.Result, time.Duration) {}
	}
	m.InFlight.Inc()
	return func(res trajectory.Result, elapsed time.Duration) {
		m.InFlight.Dec()
		m.RecordRun(res, elapsed)
	}
}

// RecordRun records the outcome and pipeline counters of a finished run.
func (m *Metrics) RecordRun(res trajectory.Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(elapsed.Seconds())
	if !res.OK() {
		m.RunsTotal.WithLabelValues(OutcomeFailed).Inc()
		return
	}
	if res.Partial {
		m.RunsTotal.WithLabelValues(OutcomePartial).Inc()
	} else {
		m.RunsTotal.WithLabelValues(OutcomeCompleted).Inc()
	}

	s := res.Summary
	m.FramesAnalyzed.Add(float64(s.FramesAnalyzed))
	m.Detections.Add(float64(len(s.TrajectoryData)))
	m.DetectorErrors.Add(float64(s.DetectorErrors))
	m.Bounces.Add(float64(s.TotalBounces))
}

// RecordStoreError counts a failed storage operation.
func (m *Metrics) RecordStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(operation).Inc()
}
