package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SGISRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "region_sgis_requests_total",
		Help: "Total SGIS REST requests by endpoint",
	}, []string{"endpoint"})
	SGISFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "region_sgis_fail_total",
		Help: "Total SGIS REST failures by endpoint",
	}, []string{"endpoint"})
	SGISDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "region_sgis_duration_ms",
		Help:    "SGIS REST call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 3000},
	}, []string{"endpoint"})
	DegradedResolutionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "region_degraded_resolutions_total",
		Help: "Total reverse geocodes answered with the fallback address",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "region_cache_hits_total",
		Help: "Total reverse geocode cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "region_cache_misses_total",
		Help: "Total reverse geocode cache misses",
	})
	NearbyDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "region_nearby_duration_ms",
		Help:    "Nearby region lookup duration in milliseconds",
		Buckets: []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000},
	})
	NearbyDroppedPointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "region_nearby_dropped_points_total",
		Help: "Total sample points dropped from nearby lookups",
	})
)

func init() {
	prometheus.MustRegister(SGISRequestsTotal)
	prometheus.MustRegister(SGISFailTotal)
	prometheus.MustRegister(SGISDurationMs)
	prometheus.MustRegister(DegradedResolutionsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(NearbyDurationMs)
	prometheus.MustRegister(NearbyDroppedPointsTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
