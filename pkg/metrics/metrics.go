// Package metrics exposes the Prometheus counters, gauges, and histograms
// that instrument the recommendation pipeline's stages (spec.md §5
// Resource budgets, §8 non-goals boundary: metrics are carried as ambient
// infrastructure even where the distilled spec stays silent on them).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesProcessedTotal counts completed end-to-end recommendation
	// requests, labeled by the detected expertise mode.
	QueriesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparky_queries_processed_total",
		Help: "Total number of recommendation queries processed, by expertise mode.",
	}, []string{"mode"})

	// StageDuration tracks how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sparky_stage_duration_seconds",
		Help:    "Duration of a single pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// TrinityFormationRate is the share of packages in a response that
	// form a compliant PowerSource+Feeder+Cooler trinity.
	TrinityFormationRate = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sparky_trinity_formation_rate",
		Help:    "Fraction of recommended packages that are trinity-compliant.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	// FallbackInvocationsTotal counts how often each fallback step in the
	// recommendation chain was reached.
	FallbackInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparky_fallback_invocations_total",
		Help: "Total number of times a fallback step in the recommendation chain fired.",
	}, []string{"step"})

	// EmbeddingFallbacksTotal counts local-hash embedding fallbacks, which
	// signal the embedding service is unreachable.
	EmbeddingFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparky_embedding_fallbacks_total",
		Help: "Total number of times the deterministic local embedding fallback was used.",
	})

	// LLMExtractionFailuresTotal counts LLM structured-extraction failures
	// that fell back to regex extraction.
	LLMExtractionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparky_llm_extraction_failures_total",
		Help: "Total number of times LLM intent extraction failed and regex fallback ran.",
	})

	// CircuitBreakerState exposes each named breaker's current state (0
	// closed, 0.5 half-open, 1 open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sparky_circuit_breaker_state",
		Help: "Current state of a named circuit breaker (0=closed, 0.5=half-open, 1=open).",
	}, []string{"name"})

	// ConfidenceBandTotal counts responses by confidence band.
	ConfidenceBandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparky_confidence_band_total",
		Help: "Total number of packages returned, by confidence band.",
	}, []string{"band"})
)

// RecordQuery increments the per-mode query counter.
func RecordQuery(mode string) {
	QueriesProcessedTotal.WithLabelValues(mode).Inc()
}

// RecordStage observes a stage's wall-clock duration.
func RecordStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordTrinityFormationRate observes the formation rate of one response.
func RecordTrinityFormationRate(rate float64) {
	TrinityFormationRate.Observe(rate)
}

// RecordFallback increments the counter for a named fallback step.
func RecordFallback(step string) {
	FallbackInvocationsTotal.WithLabelValues(step).Inc()
}

// RecordEmbeddingFallback increments the local-embedding-fallback counter.
func RecordEmbeddingFallback() {
	EmbeddingFallbacksTotal.Inc()
}

// RecordLLMExtractionFailure increments the LLM-extraction-failure counter.
func RecordLLMExtractionFailure() {
	LLMExtractionFailuresTotal.Inc()
}

// SetCircuitBreakerState records a breaker's current numeric state.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordConfidenceBand increments the counter for a confidence band.
func RecordConfidenceBand(band string) {
	ConfidenceBandTotal.WithLabelValues(band).Inc()
}
