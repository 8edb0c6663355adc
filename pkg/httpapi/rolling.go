package httpapi

import (
	"sync"
	"time"

	"github.com/weldtech/sparky/internal/stats"
)

// RollingWindow backs GET /enterprise/metrics (spec.md §6): response-time
// percentiles and Trinity formation rate over the last 100 requests, plus
// success rate and confidence distribution counted over every request
// since startup.
type RollingWindow struct {
	mu           sync.Mutex
	latencies    *stats.RingBuffer
	trinityRates *stats.RingBuffer
	total        int64
	succeeded    int64
	bands        map[string]int64
}

func NewRollingWindow() *RollingWindow {
	return &RollingWindow{
		latencies:    stats.NewRingBuffer(100),
		trinityRates: stats.NewRingBuffer(100),
		bands:        map[string]int64{"high": 0, "medium": 0, "low": 0},
	}
}

// Observe records one completed request.
func (w *RollingWindow) Observe(elapsed time.Duration, confidence, trinityRate float64, succeeded bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.latencies.Add(float64(elapsed.Milliseconds()))
	w.trinityRates.Add(trinityRate)
	w.total++
	if succeeded {
		w.succeeded++
	}
	switch {
	case confidence >= 0.8:
		w.bands["high"]++
	case confidence >= 0.6:
		w.bands["medium"]++
	default:
		w.bands["low"]++
	}
}

// MetricsSnapshot is the wire rendering of the rolling window.
type MetricsSnapshot struct {
	ResponseTimeP50MS      float64          `json:"response_time_p50_ms"`
	ResponseTimeP95MS      float64          `json:"response_time_p95_ms"`
	ResponseTimeP99MS      float64          `json:"response_time_p99_ms"`
	SuccessRate            float64          `json:"success_rate"`
	TotalRequests          int64            `json:"total_requests"`
	ConfidenceDistribution map[string]int64 `json:"confidence_distribution"`
	TrinityFormationRate   float64          `json:"trinity_formation_rate"`
}

// Snapshot computes the current window's aggregate view.
func (w *RollingWindow) Snapshot() MetricsSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	latencies := w.latencies.Values()
	snap := MetricsSnapshot{
		ResponseTimeP50MS:      stats.Percentile(latencies, 50),
		ResponseTimeP95MS:      stats.Percentile(latencies, 95),
		ResponseTimeP99MS:      stats.Percentile(latencies, 99),
		TotalRequests:          w.total,
		ConfidenceDistribution: map[string]int64{},
		TrinityFormationRate:   stats.Mean(w.trinityRates.Values()),
	}
	if w.total > 0 {
		snap.SuccessRate = float64(w.succeeded) / float64(w.total)
	}
	for band, n := range w.bands {
		snap.ConfidenceDistribution[band] = n
	}
	return snap
}
