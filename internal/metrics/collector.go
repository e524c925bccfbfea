// Package metrics exposes Prometheus instrumentation for the memory engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector registers and updates the engine's Prometheus metrics. A nil
// *Collector is valid and drops every observation, so instrumented code
// never needs nil checks at call sites.
type Collector struct {
	logger *zap.Logger

	queriesTotal    *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	fusedCandidates prometheus.Histogram

	consolidationRuns    prometheus.Counter
	consolidationCreated prometheus.Counter
	consolidationDeleted prometheus.Counter

	trainingRuns    prometheus.Counter
	trainingSamples prometheus.Gauge
}

// NewCollector creates a collector registered against reg. Passing
// prometheus.DefaultRegisterer wires the standard /metrics endpoint.
func NewCollector(reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	return &Collector{
		logger: logger,
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memcore",
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Retrieval queries by detected intent and scoring path.",
		}, []string{"intent", "path"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memcore",
			Subsystem: "retrieval",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each retrieval stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"stage"}),
		fusedCandidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "memcore",
			Subsystem: "retrieval",
			Name:      "fused_candidates",
			Help:      "Candidate count after channel fusion and capping.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		consolidationRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "memcore",
			Subsystem: "retention",
			Name:      "consolidation_runs_total",
			Help:      "Completed consolidation sweeps.",
		}),
		consolidationCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "memcore",
			Subsystem: "retention",
			Name:      "consolidation_created_total",
			Help:      "Semantic memories created by consolidation.",
		}),
		consolidationDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "memcore",
			Subsystem: "retention",
			Name:      "consolidation_deleted_total",
			Help:      "Memories deleted by the retention pass.",
		}),
		trainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "memcore",
			Subsystem: "ranking",
			Name:      "training_runs_total",
			Help:      "Completed scoring model training runs.",
		}),
		trainingSamples: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "memcore",
			Subsystem: "ranking",
			Name:      "training_samples",
			Help:      "Sample count of the most recent training run.",
		}),
	}
}

// ObserveQuery records one retrieval query.
func (c *Collector) ObserveQuery(intent string, modelUsed bool) {
	if c == nil {
		return
	}
	path := "fallback"
	if modelUsed {
		path = "model"
	}
	c.queriesTotal.WithLabelValues(intent, path).Inc()
}

// ObserveStage records the duration of one retrieval stage.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveFusedCandidates records the post-cap candidate count.
func (c *Collector) ObserveFusedCandidates(n int) {
	if c == nil {
		return
	}
	c.fusedCandidates.Observe(float64(n))
}

// ObserveConsolidation records the outcome of one consolidation sweep.
func (c *Collector) ObserveConsolidation(created, deleted int) {
	if c == nil {
		return
	}
	c.consolidationRuns.Inc()
	c.consolidationCreated.Add(float64(created))
	c.consolidationDeleted.Add(float64(deleted))
}

// ObserveTraining records the outcome of one training run.
func (c *Collector) ObserveTraining(samples int) {
	if c == nil {
		return
	}
	c.trainingRuns.Inc()
	c.trainingSamples.Set(float64(samples))
}
