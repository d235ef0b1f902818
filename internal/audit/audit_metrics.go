package audit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AuditOpsTotal counts audit log operations by type.
	AuditOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nilguard",
			Name:      "audit_operations_total",
			Help:      "Total audit log operations by type.",
		},
		[]string{"type"},
	)

	// AuditOpDuration observes operation latency by type.
	AuditOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nilguard",
			Name:      "audit_operation_duration_seconds",
			Help:      "Audit log operation duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		AuditOpsTotal,
		AuditOpDuration,
	)
}

// observeOp increments the operation counter and returns a function to observe duration.
func observeOp(opType string) func() {
	AuditOpsTotal.WithLabelValues(opType).Inc()
	start := time.Now()
	return func() {
		AuditOpDuration.WithLabelValues(opType).Observe(time.Since(start).Seconds())
	}
}
