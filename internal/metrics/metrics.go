// Package metrics provides Prometheus instrumentation for the NILGuard service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nilguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nilguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// OverridesTotal counts manual status overrides by target status.
	OverridesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nilguard",
			Name:      "overrides_total",
			Help:      "Total manual status overrides applied, by target status.",
		},
		[]string{"status"},
	)

	// AppealsFiledTotal counts appeals filed.
	AppealsFiledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nilguard",
		Name:      "appeals_filed_total",
		Help:      "Total appeals filed by athletes.",
	})

	// AppealsResolvedTotal counts appeal resolutions by outcome.
	AppealsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nilguard",
			Name:      "appeals_resolved_total",
			Help:      "Total appeals resolved, by resolution outcome.",
		},
		[]string{"resolution"},
	)

	// BulkItemsTotal counts bulk action items by action and outcome.
	BulkItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nilguard",
			Name:      "bulk_items_total",
			Help:      "Total bulk action items processed, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	// AuditEntriesTotal counts audit trail entries by action.
	AuditEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nilguard",
			Name:      "audit_entries_total",
			Help:      "Total audit trail entries appended, by action.",
		},
		[]string{"action"},
	)

	// ScoreLookupsTotal counts automated score fetches by result.
	ScoreLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nilguard",
			Name:      "score_lookups_total",
			Help:      "Total automated score lookups, by result.",
		},
		[]string{"result"},
	)

	// WebhookDeliveriesTotal counts webhook delivery attempts by result.
	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nilguard",
			Name:      "webhook_deliveries_total",
			Help:      "Total webhook deliveries by result.",
		},
		[]string{"result"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nilguard",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nilguard", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nilguard", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nilguard", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nilguard", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nilguard", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nilguard", Name: "goroutines",
		Help: "Current number of goroutines.",
	})

	// AppealResolutionDuration observes time from filing to resolution.
	AppealResolutionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nilguard",
		Name:      "appeal_resolution_duration_seconds",
		Help:      "Time from appeal filing to resolution in seconds.",
		Buckets:   []float64{3600, 21600, 86400, 172800, 604800, 1209600, 2592000},
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		OverridesTotal,
		AppealsFiledTotal,
		AppealsResolvedTotal,
		BulkItemsTotal,
		AuditEntriesTotal,
		ScoreLookupsTotal,
		WebhookDeliveriesTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
		AppealResolutionDuration,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
