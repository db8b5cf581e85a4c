package frontend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instrumentation for one Orchestrator,
// tracking the per-stage survivor counts of TrackingInfo and per-frame
// processing latency.
type Metrics struct {
	stageSurvivors *prometheus.GaugeVec
	frameLatency   prometheus.Histogram
	framesDropped  prometheus.Counter
	activeFeatures prometheus.Gauge
}

// NewMetrics registers a fresh Metrics set against reg. Passing a
// dedicated registry (rather than the global default) keeps multiple
// Orchestrator instances in the same process from colliding on metric
// names during tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stageSurvivors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vio_frontend",
			Name:      "stage_survivors",
			Help:      "Number of features surviving each pipeline stage for the most recent frame.",
		}, []string{"stage"}),
		frameLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vio_frontend",
			Name:      "frame_processing_seconds",
			Help:      "Wall-clock time to process one stereo frame.",
			Buckets:   prometheus.DefBuckets,
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vio_frontend",
			Name:      "frames_dropped_total",
			Help:      "Stereo frames rejected before processing (non-monotonic timestamp, mismatched dimensions).",
		}),
		activeFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vio_frontend",
			Name:      "active_features",
			Help:      "Total features currently held across all grid cells.",
		}),
	}
	reg.MustRegister(m.stageSurvivors, m.frameLatency, m.framesDropped, m.activeFeatures)
	return m
}

// Observe records one TrackingInfo's stage counters.
func (m *Metrics) Observe(info TrackingInfo) {
	if m == nil {
		return
	}
	m.stageSurvivors.WithLabelValues("before_tracking").Set(float64(info.BeforeTracking))
	m.stageSurvivors.WithLabelValues("after_tracking").Set(float64(info.AfterTracking))
	m.stageSurvivors.WithLabelValues("after_matching").Set(float64(info.AfterMatching))
	m.stageSurvivors.WithLabelValues("after_ransac").Set(float64(info.AfterRansac))
}

// ObserveLatency records one frame's processing duration in seconds.
func (m *Metrics) ObserveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.frameLatency.Observe(seconds)
}

// IncFramesDropped increments the dropped-frame counter.
func (m *Metrics) IncFramesDropped() {
	if m == nil {
		return
	}
	m.framesDropped.Inc()
}

// SetActiveFeatures records the current total feature count across the grid.
func (m *Metrics) SetActiveFeatures(n int) {
	if m == nil {
		return
	}
	m.activeFeatures.Set(float64(n))
}
