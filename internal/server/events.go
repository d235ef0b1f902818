package server

import (
	"time"

	"github.com/fairplayhq/nilguard/internal/appeal"
	"github.com/fairplayhq/nilguard/internal/bulk"
	"github.com/fairplayhq/nilguard/internal/deal"
	"github.com/fairplayhq/nilguard/internal/decision"
	"github.com/fairplayhq/nilguard/internal/override"
	"github.com/fairplayhq/nilguard/internal/realtime"
	"github.com/fairplayhq/nilguard/internal/webhooks"
)

// Event bridges fan domain notifications out to the WebSocket hub and the
// webhook emitter. Hub broadcasts are buffered and the emitter is
// fire-and-forget, so none of these block the request path.

// dealEvents implements deal.Events.
type dealEvents struct {
	hub     *realtime.Hub
	emitter *webhooks.Emitter
}

func (e *dealEvents) ScoreRecorded(d *deal.Deal, score float64, status decision.Status) {
	e.hub.Broadcast(&realtime.Event{
		Type:      realtime.EventStatusChanged,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"dealId":    d.ID,
			"athleteId": d.AthleteID,
			"score":     score,
			"status":    string(status),
			"cause":     "score_recorded",
		},
	})
	e.emitter.EmitScoreRecorded(d.ID, score, string(status))
}

func (e *dealEvents) StatusChanged(dealID, athleteID string, status decision.Status, source string) {
	e.hub.BroadcastStatusChange(map[string]interface{}{
		"dealId":    dealID,
		"athleteId": athleteID,
		"status":    string(status),
		"source":    source,
	})
	e.emitter.EmitStatusChanged(dealID, athleteID, string(status), source)
}

// overrideEvents implements override.Events.
type overrideEvents struct {
	hub     *realtime.Hub
	emitter *webhooks.Emitter
}

func (e *overrideEvents) OverrideApplied(ov *override.Override) {
	e.hub.Broadcast(&realtime.Event{
		Type:      realtime.EventOverrideApplied,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"dealId":      ov.DealID,
			"overrideId":  ov.ID,
			"priorStatus": string(ov.PriorStatus),
			"newStatus":   string(ov.NewStatus),
			"officerId":   ov.OfficerID,
		},
	})
	e.emitter.EmitOverrideApplied(ov.DealID, ov.ID, string(ov.NewStatus), ov.OfficerID)
}

// appealEvents implements appeal.Events.
type appealEvents struct {
	hub     *realtime.Hub
	emitter *webhooks.Emitter
}

func (e *appealEvents) AppealFiled(a *appeal.Appeal) {
	e.hub.Broadcast(&realtime.Event{
		Type:      realtime.EventAppealFiled,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"dealId":    a.DealID,
			"appealId":  a.ID,
			"athleteId": a.AthleteID,
		},
	})
	e.emitter.EmitAppealFiled(a.DealID, a.ID, a.AthleteID)
}

func (e *appealEvents) AppealResolved(a *appeal.Appeal) {
	data := map[string]interface{}{
		"dealId":     a.DealID,
		"appealId":   a.ID,
		"athleteId":  a.AthleteID,
		"resolution": string(a.Resolution),
	}
	if a.NewDecision != nil {
		data["newDecision"] = string(*a.NewDecision)
	}
	e.hub.Broadcast(&realtime.Event{
		Type:      realtime.EventAppealResolved,
		Timestamp: time.Now(),
		Data:      data,
	})
	e.emitter.EmitAppealResolved(a.DealID, a.ID, string(a.Resolution), a.ResolvedBy)
}

// bulkEvents implements bulk.Events.
type bulkEvents struct {
	hub     *realtime.Hub
	emitter *webhooks.Emitter
}

func (e *bulkEvents) BulkCompleted(action bulk.Action, succeeded, failed int) {
	e.hub.Broadcast(&realtime.Event{
		Type:      realtime.EventBulkCompleted,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"action":    string(action),
			"succeeded": succeeded,
			"failed":    failed,
		},
	})
	e.emitter.EmitBulkCompleted(string(action), succeeded, failed)
}

var (
	_ deal.Events     = (*dealEvents)(nil)
	_ override.Events = (*overrideEvents)(nil)
	_ appeal.Events   = (*appealEvents)(nil)
	_ bulk.Events     = (*bulkEvents)(nil)
)
