package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ClaimResultWon          = "won"
	ClaimResultLost         = "lost"
	ClaimResultOutOfArea    = "out_of_area"
	ClaimResultNotFound     = "not_found"
	ClaimResultInvalidState = "invalid_state"
)

// MatchingMetrics records claim-race outcomes and feed latency.
type MatchingMetrics struct {
	claims       *prometheus.CounterVec
	feedDuration prometheus.Histogram
	stalePending prometheus.Gauge
}

// NewMatchingMetrics registers the matching metrics on the provided registerer.
func NewMatchingMetrics(reg prometheus.Registerer) *MatchingMetrics {
	if reg == nil {
		return &MatchingMetrics{}
	}
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_claim_attempts_total",
		Help: "Claim attempts by outcome.",
	}, []string{"result"})
	feedDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "claimable_feed_duration_seconds",
		Help:    "Duration of claimable-feed queries in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	stalePending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stale_pending_acceptance_orders",
		Help: "Orders stuck in pending_acceptance beyond the watch threshold.",
	})
	reg.MustRegister(claims, feedDuration, stalePending)
	return &MatchingMetrics{
		claims:       claims,
		feedDuration: feedDuration,
		stalePending: stalePending,
	}
}

// IncClaim counts one claim attempt with the given result label.
func (m *MatchingMetrics) IncClaim(result string) {
	if m == nil || m.claims == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.claims.WithLabelValues(result).Inc()
}

// ObserveFeedDuration records the duration of one feed query.
func (m *MatchingMetrics) ObserveFeedDuration(duration time.Duration) {
	if m == nil || m.feedDuration == nil {
		return
	}
	m.feedDuration.Observe(duration.Seconds())
}

// SetStalePending records the current stale pending_acceptance count.
func (m *MatchingMetrics) SetStalePending(count int) {
	if m == nil || m.stalePending == nil {
		return
	}
	m.stalePending.Set(float64(count))
}
