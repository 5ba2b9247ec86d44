package odata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for OData requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odata_requests_total",
		Help: "Total OData GET requests by entity set and status",
	}, []string{"entity_set", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odata_request_duration_seconds",
		Help:    "OData request duration in seconds by entity set",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"entity_set"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odata_errors_total",
		Help: "Total OData errors by kind",
	}, []string{"kind"})

	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odata_pages_total",
		Help: "Total collection pages decoded by entity set",
	}, []string{"entity_set"})

	coalescedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odata_coalesced_requests_total",
		Help: "Requests that shared an in-flight round trip by entity set",
	}, []string{"entity_set"})
)
