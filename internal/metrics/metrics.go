package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCRequestsTotal tracks chain RPC requests by status
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curvewatch_rpc_requests_total",
			Help: "The total number of chain RPC requests",
		},
		[]string{"status"},
	)

	// RPCEndpointHealth tracks RPC endpoint health
	RPCEndpointHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curvewatch_rpc_endpoint_health",
			Help: "Health status of RPC endpoints (1 = healthy, 0 = unhealthy)",
		},
		[]string{"endpoint"},
	)

	// RefreshSeconds tracks time taken by a market refresh cycle
	RefreshSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curvewatch_refresh_seconds",
		Help:    "Time taken by a market data refresh cycle in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1min
	})

	// TokensScored tracks the number of tokens scored per refresh
	TokensScored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curvewatch_tokens_scored",
		Help: "The number of tokens scored in the latest refresh",
	})

	// WhaleEvents tracks whale events by outcome
	WhaleEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curvewatch_whale_events_total",
			Help: "The total number of whale transfer candidates by outcome",
		},
		[]string{"outcome"}, // inserted, duplicate, below_floor, error
	)

	// AlertsTotal tracks alert deliveries by outcome
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curvewatch_alerts_total",
			Help: "The total number of alert deliveries by outcome",
		},
		[]string{"outcome"}, // sent, quota_skipped, no_target, failed
	)

	// CronRunsTotal tracks scheduled job runs by job and status
	CronRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curvewatch_cron_runs_total",
			Help: "The total number of scheduled job runs",
		},
		[]string{"job", "status"}, // success, failed, locked
	)

	// DatabaseOperations tracks database operations
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curvewatch_database_operations_total",
			Help: "The total number of database operations",
		},
		[]string{"operation", "status"}, // insert/update, success/failed
	)
)

// RecordRPCRequest records an RPC request with the given status
func RecordRPCRequest(status string) {
	RPCRequestsTotal.WithLabelValues(status).Inc()
}

// SetRPCEndpointHealth sets the health status of an RPC endpoint
func SetRPCEndpointHealth(endpoint string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	RPCEndpointHealth.WithLabelValues(endpoint).Set(value)
}

// RecordRefresh records the time taken by a market refresh cycle
func RecordRefresh(duration float64) {
	RefreshSeconds.Observe(duration)
}

// RecordWhaleEvent records a whale candidate outcome
func RecordWhaleEvent(outcome string) {
	WhaleEvents.WithLabelValues(outcome).Inc()
}

// RecordAlert records an alert delivery outcome
func RecordAlert(outcome string) {
	AlertsTotal.WithLabelValues(outcome).Inc()
}

// RecordCronRun records a scheduled job run
func RecordCronRun(job, status string) {
	CronRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string) {
	DatabaseOperations.WithLabelValues(operation, status).Inc()
}
