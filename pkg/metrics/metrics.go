// Package metrics exposes the Prometheus registry of the export service.
// Metrics are defined with promauto next to the code that records them
// (client, cache, pagination, enrich, report); this package serves them and
// documents the catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer promauto uses in every package.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Upstream Requests (pkg/client):
//   - export_upstream_requests_total{resource, status} (Counter): Attempts by resource
//     (orders, order, line_items, shipments) and HTTP status, "cached" or "network_error"
//   - export_upstream_request_duration_seconds{resource} (Histogram): Request duration including retries
//   - export_upstream_retries_total{error_class} (Counter): Retry attempts
//   - export_upstream_retry_exhausted_total{error_class} (Counter): Requests that failed every attempt
//
// Response Cache (pkg/cache):
//   - export_cache_hits_total{layer} (Counter)
//   - export_cache_misses_total (Counter)
//   - export_cache_size_bytes{layer} (Gauge): Bytes written to the cache
//   - export_cache_errors_total{operation} (Counter): get, set, delete
//
// Pagination (pkg/pagination):
//   - export_pages_fetched_total{resource} (Counter): Pages fetched per collection
//
// Enrichment (pkg/enrich):
//   - export_enrichment_failures_total (Counter): Orders whose detail fetch failed
//   - export_enrichment_order_duration_seconds (Histogram): Per-order enrichment time
//
// Export Runs (pkg/report):
//   - export_runs_total{report_type, outcome} (Counter): Runs by mode and
//     outcome (success, partial, invalid, error)
//   - export_rows_total (Counter): Rows produced
//   - export_run_duration_seconds{report_type} (Histogram): Run duration
//
// Example Prometheus Queries:
//
//   # Share of runs with failed or truncated orders
//   sum(rate(export_runs_total{outcome="partial"}[1h])) / sum(rate(export_runs_total[1h]))
//
//   # Upstream retry rate
//   sum(rate(export_upstream_retries_total[5m])) by (error_class)
//
//   # P95 run latency
//   histogram_quantile(0.95, rate(export_run_duration_seconds_bucket[15m]))
