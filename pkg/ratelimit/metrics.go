package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for rate limiting.
var (
	waitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odata_ratelimit_wait_seconds",
		Help:    "Time spent waiting for rate limiter permission by limiter",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"limiter"})

	windowOverflowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odata_ratelimit_window_overflows_total",
		Help: "Total number of times a shared window was full and a caller had to wait for the next one",
	})
)
