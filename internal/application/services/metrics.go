package services

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almanac_cache_lookups_total",
			Help: "Cache lookups by dimension and outcome (hit, miss, bypass)",
		},
		[]string{"dimension", "outcome"},
	)

	upstreamFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almanac_upstream_fetches_total",
			Help: "Upstream almanac fetches by dimension and outcome (ok, error)",
		},
		[]string{"dimension", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups)
	prometheus.MustRegister(upstreamFetches)
}
