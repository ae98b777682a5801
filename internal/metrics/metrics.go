// Package metrics exposes the prometheus instrumentation for the
// normalization pipeline and the spatial catalog.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NormalizeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spatix_normalize_requests_total",
		Help: "Total number of normalization requests",
	})
	NormalizeFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatix_normalize_failures_total",
		Help: "Total normalization failures by error code",
	}, []string{"code"})
	NormalizeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "spatix_normalize_duration_ms",
		Help:    "Normalization duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	GeometriesRepairedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spatix_geometries_repaired_total",
		Help: "Total geometries replaced with a repaired version",
	})
	SpatialQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatix_spatial_queries_total",
		Help: "Total spatial queries by query type",
	}, []string{"type"})
	SpatialQueryDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "spatix_spatial_query_duration_ms",
		Help:    "Spatial query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	DatasetsIndexed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spatix_datasets_indexed",
		Help: "Datasets currently carrying bbox index columns",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spatix_rate_limited_total",
		Help: "Total requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(
		NormalizeRequestsTotal,
		NormalizeFailuresTotal,
		NormalizeDurationMs,
		GeometriesRepairedTotal,
		SpatialQueriesTotal,
		SpatialQueryDurationMs,
		DatasetsIndexed,
		RateLimitedTotal,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
