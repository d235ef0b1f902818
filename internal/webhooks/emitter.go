package webhooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fairplayhq/nilguard/internal/idgen"
)

var (
	webhookEmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nilguard",
		Subsystem: "webhook",
		Name:      "emit_total",
		Help:      "Total webhook emit attempts by event type.",
	}, []string{"event_type"})

	webhookEmitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nilguard",
		Subsystem: "webhook",
		Name:      "emit_errors_total",
		Help:      "Total webhook emit failures by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(webhookEmitTotal, webhookEmitErrors)
}

// Emitter wraps a Dispatcher to emit lifecycle events across subsystems.
// All methods are fire-and-forget: errors are logged but never returned.
type Emitter struct {
	d      *Dispatcher
	logger *slog.Logger
}

// NewEmitter creates a new webhook emitter.
func NewEmitter(d *Dispatcher, logger *slog.Logger) *Emitter {
	return &Emitter{d: d, logger: logger}
}

func (e *Emitter) emit(eventType EventType, data map[string]interface{}) {
	if e == nil || e.d == nil {
		return
	}
	webhookEmitTotal.WithLabelValues(string(eventType)).Inc()
	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.d.Dispatch(ctx, event); err != nil {
		webhookEmitErrors.WithLabelValues(string(eventType)).Inc()
		e.logger.Warn("webhook emit failed", "event", eventType, "error", err)
	}
}

// EmitStatusChanged emits a deal.status_changed event.
func (e *Emitter) EmitStatusChanged(dealID, athleteID, status, cause string) {
	e.emit(EventStatusChanged, map[string]interface{}{
		"dealId":    dealID,
		"athleteId": athleteID,
		"status":    status,
		"cause":     cause,
	})
}

// EmitScoreRecorded emits a deal.score_recorded event.
func (e *Emitter) EmitScoreRecorded(dealID string, score float64, status string) {
	e.emit(EventScoreRecorded, map[string]interface{}{
		"dealId": dealID,
		"score":  score,
		"status": status,
	})
}

// EmitOverrideApplied emits an override.applied event.
func (e *Emitter) EmitOverrideApplied(dealID, overrideID, newStatus, officerID string) {
	e.emit(EventOverrideApplied, map[string]interface{}{
		"dealId":     dealID,
		"overrideId": overrideID,
		"newStatus":  newStatus,
		"officerId":  officerID,
	})
}

// EmitAppealFiled emits an appeal.filed event.
func (e *Emitter) EmitAppealFiled(dealID, appealID, athleteID string) {
	e.emit(EventAppealFiled, map[string]interface{}{
		"dealId":    dealID,
		"appealId":  appealID,
		"athleteId": athleteID,
	})
}

// EmitAppealResolved emits an appeal.resolved event.
func (e *Emitter) EmitAppealResolved(dealID, appealID, resolution, resolvedBy string) {
	e.emit(EventAppealResolved, map[string]interface{}{
		"dealId":     dealID,
		"appealId":   appealID,
		"resolution": resolution,
		"resolvedBy": resolvedBy,
	})
}

// EmitBulkCompleted emits a bulk.completed event.
func (e *Emitter) EmitBulkCompleted(action string, succeeded, failed int) {
	e.emit(EventBulkCompleted, map[string]interface{}{
		"action":    action,
		"succeeded": succeeded,
		"failed":    failed,
	})
}
