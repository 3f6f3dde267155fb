package repositorycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels.
const (
	opGet    = "get"
	opList   = "list"
	opSearch = "search"
)

var (
	cacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_requests_total",
			Help: "Cache lookups by entity kind, operation and result (hit, miss, error).",
		},
		[]string{"kind", "op", "result"},
	)

	cacheFillErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_fill_errors_total",
			Help: "Cache writes that failed after a backend read.",
		},
		[]string{"kind"},
	)

	backendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_backend_requests_total",
			Help: "Search backend calls by entity kind, operation and result.",
		},
		[]string{"kind", "op", "result"},
	)
)
