package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by method (password|otp|google|refresh) and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "technotrades_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	// OTPIssued counts one-time codes issued per purpose.
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "technotrades_otp_issued_total",
			Help: "Total number of one-time codes issued",
		},
		[]string{"purpose"},
	)

	// ActiveTokens tracks refresh token records currently outstanding.
	ActiveTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "technotrades_active_tokens",
			Help: "Number of outstanding refresh token records",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "technotrades_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
