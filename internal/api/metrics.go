package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "economy_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "economy_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	drawsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "economy_draws_total",
		Help: "Completed card draws by kind",
	}, []string{"kind"})

	upgradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "economy_upgrades_total",
		Help: "Full cards minted by consolidation",
	})

	discoveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "economy_discoveries_total",
		Help: "First-ever card discoveries recorded",
	})

	tradesResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "economy_trades_resolved_total",
		Help: "Trade requests resolved by outcome",
	}, []string{"outcome"})
)
