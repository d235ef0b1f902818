// Package audit provides the append-only trail of every status-affecting
// action on a deal: automated scores, manual overrides, and appeal activity.
//
// Entries are written in the same transaction as the change they describe.
// A failed audit write fails the whole operation; the trail never lags the
// data it explains.
package audit

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidEntry = errors.New("invalid audit entry")

// ActorKind identifies who performed an audited action.
type ActorKind string

const (
	ActorSystem  ActorKind = "system"
	ActorAthlete ActorKind = "athlete"
	ActorOfficer ActorKind = "officer"
)

// Actor is the identity attached to an audit entry. System actors carry no
// ID; athletes carry an ID; officers carry an ID and a display name.
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name,omitempty"`
}

// System returns the system actor.
func System() Actor {
	return Actor{Kind: ActorSystem}
}

// Athlete returns an athlete actor.
func Athlete(id string) Actor {
	return Actor{Kind: ActorAthlete, ID: id}
}

// Officer returns an officer actor.
func Officer(id, name string) Actor {
	return Actor{Kind: ActorOfficer, ID: id, Name: name}
}

// Valid reports whether the actor has a known kind and the identity fields
// that kind requires.
func (a Actor) Valid() bool {
	switch a.Kind {
	case ActorSystem:
		return true
	case ActorAthlete:
		return a.ID != ""
	case ActorOfficer:
		return a.ID != ""
	}
	return false
}

// Well-known entry actions.
const (
	ActionScoreRecorded   = "score_recorded"
	ActionOverrideApplied = "override_applied"
	ActionAppealFiled     = "appeal_filed"
	ActionAppealResolved  = "appeal_resolved"
)

// Entry is a single audit trail record. IDs are assigned by the log on
// append and increase monotonically per deployment.
type Entry struct {
	ID        int64     `json:"id"`
	DealID    string    `json:"dealId"`
	Actor     Actor     `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks entry invariants before it is persisted.
func (e *Entry) Validate() error {
	if e.DealID == "" {
		return ErrInvalidEntry
	}
	if !e.Actor.Valid() {
		return ErrInvalidEntry
	}
	if e.Action == "" {
		return ErrInvalidEntry
	}
	if e.CreatedAt.IsZero() {
		return ErrInvalidEntry
	}
	return nil
}

// Log persists audit entries.
type Log interface {
	// Append stores an entry and assigns its ID. Fails only on malformed
	// input or storage errors.
	Append(ctx context.Context, e *Entry) error
	// ListByDeal returns a deal's entries oldest-first.
	ListByDeal(ctx context.Context, dealID string, limit int) ([]*Entry, error)
}
