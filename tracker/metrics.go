package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Business metrics, registered with the default Prometheus registry and
// exposed on /metrics by the server.
var (
	visitsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visits_tracked_total",
			Help: "Total number of visits recorded, by project.",
		},
		[]string{"project"},
	)

	geoLookupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geo_lookup_failures_total",
			Help: "Total number of geolocation lookups that fell back to Unknown.",
		},
	)

	trackRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "track_rate_limited_total",
			Help: "Total number of track requests rejected by the rate limiter.",
		},
	)

	statsQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_queries_total",
			Help: "Total number of stats queries served, by endpoint.",
		},
		[]string{"endpoint"},
	)
)
