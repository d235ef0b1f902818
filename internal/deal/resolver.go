package deal

import (
	"context"
	"fmt"
	"time"

	"github.com/fairplayhq/nilguard/internal/decision"
)

// Sources of an effective status, most authoritative first.
const (
	SourceAppeal    = "appeal_resolution"
	SourceOverride  = "override"
	SourceAutomated = "automated"
)

// OverrideLookup reports the active override for a deal, if any. Implemented
// by the override ledger; kept as a local interface so deal doesn't import it.
type OverrideLookup interface {
	// ActiveStatus returns the active override's status and creation time.
	ActiveStatus(ctx context.Context, dealID string) (decision.Status, time.Time, bool, error)
}

// AppealLookup reports appeal state for a deal. Implemented by the appeal
// workflow.
type AppealLookup interface {
	// LatestResolvedDecision returns the new decision and resolution time of
	// the most recently resolved appeal that changed the decision, if any.
	LatestResolvedDecision(ctx context.Context, dealID string) (decision.Decision, time.Time, bool, error)
	// HasOpen reports whether an unresolved appeal exists for the deal.
	HasOpen(ctx context.Context, dealID string) (bool, error)
}

// Resolution is a deal's effective status and where it came from.
type Resolution struct {
	Status decision.Status `json:"status"`
	Source string          `json:"source"`
}

// Resolver folds automated status, active override, and resolved appeals
// into a deal's effective status.
//
// Manual adjudications beat the automated status, and between them the most
// recent one governs: a resolved appeal's new decision stands until an
// officer overrides after the resolution. A deal with no automated score is
// pending.
type Resolver struct {
	store     Store
	overrides OverrideLookup
	appeals   AppealLookup
}

// NewResolver creates a resolver. The lookups may be nil until wired; a nil
// lookup contributes nothing to the resolution.
func NewResolver(store Store, overrides OverrideLookup, appeals AppealLookup) *Resolver {
	return &Resolver{
		store:     store,
		overrides: overrides,
		appeals:   appeals,
	}
}

// SetLookups wires the override and appeal lookups after construction.
// Breaks the construction cycle between deal, override, and appeal.
func (r *Resolver) SetLookups(overrides OverrideLookup, appeals AppealLookup) {
	r.overrides = overrides
	r.appeals = appeals
}

// EffectiveStatus resolves a deal's effective status by ID.
func (r *Resolver) EffectiveStatus(ctx context.Context, dealID string) (*Resolution, error) {
	d, err := r.store.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, d)
}

// Resolve resolves the effective status of an already-loaded deal.
func (r *Resolver) Resolve(ctx context.Context, d *Deal) (*Resolution, error) {
	var (
		appealStatus decision.Status
		appealAt     time.Time
		haveAppeal   bool
	)
	if r.appeals != nil {
		dec, resolvedAt, ok, err := r.appeals.LatestResolvedDecision(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("appeal lookup: %w", err)
		}
		if ok {
			status, err := decision.StatusForDecision(dec)
			if err != nil {
				return nil, err
			}
			appealStatus, appealAt, haveAppeal = status, resolvedAt, true
		}
	}

	if r.overrides != nil {
		status, createdAt, ok, err := r.overrides.ActiveStatus(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("override lookup: %w", err)
		}
		// Most recent adjudication governs; ties go to the appeal resolution.
		if ok && (!haveAppeal || createdAt.After(appealAt)) {
			return &Resolution{Status: status, Source: SourceOverride}, nil
		}
	}

	if haveAppeal {
		return &Resolution{Status: appealStatus, Source: SourceAppeal}, nil
	}

	if d.AutomatedScore == nil {
		return &Resolution{Status: decision.StatusPending, Source: SourceAutomated}, nil
	}
	return &Resolution{Status: d.AutomatedStatus, Source: SourceAutomated}, nil
}

// OpenItem reports whether the deal currently requires officer attention:
// effective status red, yellow, or pending, or an open appeal.
func (r *Resolver) OpenItem(ctx context.Context, d *Deal) (bool, error) {
	res, err := r.Resolve(ctx, d)
	if err != nil {
		return false, err
	}
	if res.Status != decision.StatusGreen {
		return true, nil
	}
	if r.appeals != nil {
		open, err := r.appeals.HasOpen(ctx, d.ID)
		if err != nil {
			return false, fmt.Errorf("appeal lookup: %w", err)
		}
		return open, nil
	}
	return false, nil
}
