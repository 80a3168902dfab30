package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search and stream Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "search_requests_total",
			Help:      "Natural-language searches by page kind and outcome category",
		},
		[]string{"page", "outcome"}, // page: "fresh" / "more"
	)

	SearchBackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docassist",
			Name:      "search_backend_duration_seconds",
			Help:      "Backend natural-language search latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"page"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "result_cache_total",
			Help:      "Search result cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "expired"
	)

	StreamSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "stream_sessions_total",
			Help:      "Streaming sessions by final state",
		},
		[]string{"state"},
	)

	StreamSessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docassist",
			Name:      "stream_session_duration_seconds",
			Help:      "Streaming session wall time in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"state"},
	)

	// StreamFramesMalformed counts skipped frames by reason: invalid_json or oversized.
	StreamFramesMalformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docassist",
			Name:      "stream_frames_malformed_total",
			Help:      "Stream frames skipped because they could not be decoded",
		},
		[]string{"reason"},
	)
)

// Reasons for StreamFramesMalformed.
const (
	FrameInvalidJSON = "invalid_json"
	FrameOversized   = "oversized"
)

var registerOnce sync.Once

// RegisterAssistMetrics registers search, cache and stream metrics. Safe to call more than once.
func RegisterAssistMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(SearchRequestsTotal)
		prometheus.MustRegister(SearchBackendDuration)
		prometheus.MustRegister(ResultCacheTotal)
		prometheus.MustRegister(StreamSessionsTotal)
		prometheus.MustRegister(StreamSessionDuration)
		prometheus.MustRegister(StreamFramesMalformed)
	})
}
