// Package metrics provides centralized Prometheus metrics registry for the OData client.
// All metrics are defined in their respective packages (odata, ratelimit)
// to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the OData client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry collected.
var Gatherer = prometheus.DefaultGatherer

// Prefix is shared by every metric of this module.
const Prefix = "odata_"

// Snapshot sums every counter and histogram observation count whose name
// starts with Prefix, keyed by metric name. Label dimensions are collapsed.
func Snapshot() (map[string]float64, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, Prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[name] += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[name] += float64(m.GetHistogram().GetSampleCount())
			case m.GetGauge() != nil:
				out[name] += m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}

// Metrics Documentation
//
// Request Metrics (pkg/odata):
//   - odata_requests_total{entity_set, status} (Counter): GET requests by entity set and HTTP status ("transport_error" when no response)
//   - odata_request_duration_seconds{entity_set} (Histogram): Request duration by entity set
//   - odata_errors_total{kind} (Counter): Errors by kind (construction, url_construction, transport, http_status, decode, pagination)
//   - odata_pages_total{entity_set} (Counter): Collection pages decoded
//   - odata_coalesced_requests_total{entity_set} (Counter): Requests that shared an in-flight round trip
//
// Rate Limit Metrics (pkg/ratelimit):
//   - odata_ratelimit_wait_seconds{limiter} (Histogram): Time spent waiting for permission
//   - odata_ratelimit_window_overflows_total (Counter): Full shared windows that forced a wait
//
// Example Prometheus Queries:
//
//   # Pages per paged fetch
//   rate(odata_pages_total[5m]) / rate(odata_requests_total{status="200"}[5m])
//
//   # Error Rate by Kind
//   sum by (kind) (rate(odata_errors_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(odata_request_duration_seconds_bucket[5m]))
//
//   # P95 Limiter Delay
//   histogram_quantile(0.95, rate(odata_ratelimit_wait_seconds_bucket[5m]))
