package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics holds Prometheus metrics for indexer calls
type GatewayMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Retries  *prometheus.CounterVec
	CacheHit *prometheus.CounterVec
}

// NewGatewayMetrics creates gateway metrics registered on reg.
// A nil registerer creates unregistered collectors (useful in tests).
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)
	return &GatewayMetrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of indexer requests by action and outcome",
		}, []string{"action", "outcome"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Indexer request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"action"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_retries_total",
			Help: "Total number of retried indexer operations",
		}, []string{"operation"}),
		CacheHit: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_cache_lookups_total",
			Help: "Raw response cache lookups by operation and result",
		}, []string{"operation", "result"}),
	}
}

// ServiceMetrics holds Prometheus metrics for portfolio and anomaly services
type ServiceMetrics struct {
	PortfolioRefreshes    prometheus.Counter
	PortfolioEntryErrors  *prometheus.CounterVec
	RefreshLatency        prometheus.Histogram
	NormalizationFailures prometheus.Counter
	AnomalyBatches        prometheus.Counter
	AnomaliesFlagged      prometheus.Counter
}

// NewServiceMetrics creates service metrics registered on reg
func NewServiceMetrics(reg prometheus.Registerer) *ServiceMetrics {
	factory := promauto.With(reg)
	return &ServiceMetrics{
		PortfolioRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_refreshes_total",
			Help: "Total number of portfolio summary refreshes",
		}),
		PortfolioEntryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_entry_errors_total",
			Help: "Portfolio entries that failed to refresh, by error kind",
		}, []string{"kind"}),
		RefreshLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_refresh_duration_seconds",
			Help:    "Time taken to refresh the whole portfolio",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		NormalizationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "normalization_failures_total",
			Help: "Raw transactions that could not be normalized",
		}),
		AnomalyBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomaly_batches_scored_total",
			Help: "Total number of batches scored by the anomaly detector",
		}),
		AnomaliesFlagged: factory.NewCounter(prometheus.CounterOpts{
			Name: "anomalies_flagged_total",
			Help: "Total number of records flagged as anomalous",
		}),
	}
}
