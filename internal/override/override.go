// Package override is the ledger of manual status overrides.
//
// An override is an officer's relaxation of a deal's automated status and is
// the only path by which a human may soften an automated flag. Overrides
// never raise risk: the target status is green or yellow, and the deal must
// currently be red or yellow. The justification floor and the mandatory
// audit entry exist so every relaxation is explainable after the fact.
//
// At most one override per deal is active; applying a new one supersedes
// the previous. Overrides are immutable once created.
package override

import (
	"context"
	"errors"
	"time"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/deal"
	"github.com/fairplayhq/nilguard/internal/decision"
	"github.com/fairplayhq/nilguard/internal/idgen"
	"github.com/fairplayhq/nilguard/internal/syncutil"
)

// MinJustificationLen is the minimum trimmed justification length, counted
// in characters, not bytes.
const MinJustificationLen = 50

var (
	ErrNotFound              = errors.New("override not found")
	ErrInvalidTargetStatus   = errors.New("override target must be green or yellow")
	ErrNotOverridable        = errors.New("deal status is not overridable")
	ErrJustificationTooShort = errors.New("justification must be at least 50 characters")
)

// Override represents one manual status correction.
type Override struct {
	ID            string          `json:"id"`
	DealID        string          `json:"dealId"`
	PriorStatus   decision.Status `json:"priorStatus"`
	NewStatus     decision.Status `json:"newStatus"`
	Justification string          `json:"justification"`
	OfficerID     string          `json:"officerId"`
	OfficerName   string          `json:"officerName,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	SupersededAt  *time.Time      `json:"supersededAt,omitempty"`
}

// Active reports whether this override is the deal's current one.
func (o *Override) Active() bool {
	return o.SupersededAt == nil
}

// Store persists override data.
type Store interface {
	// CreateSuperseding marks any active override for the deal superseded,
	// inserts ov as active, and writes the audit entry — one transaction.
	CreateSuperseding(ctx context.Context, ov *Override, entry *audit.Entry) error
	// ActiveForDeal returns the deal's active override, or ErrNotFound.
	ActiveForDeal(ctx context.Context, dealID string) (*Override, error)
	// ListByDeal returns a deal's overrides newest-first, active one first.
	ListByDeal(ctx context.Context, dealID string, limit int) ([]*Override, error)
}

// StatusResolver provides a deal's current effective status. Satisfied by
// *deal.Resolver.
type StatusResolver interface {
	EffectiveStatus(ctx context.Context, dealID string) (*deal.Resolution, error)
}

// Events receives notifications after successful writes.
type Events interface {
	OverrideApplied(ov *Override)
}

// ApplyRequest contains the parameters for applying an override.
type ApplyRequest struct {
	NewStatus     decision.Status `json:"newStatus" binding:"required"`
	Justification string          `json:"justification" binding:"required"`
	OfficerID     string          `json:"officerId" binding:"required"`
	OfficerName   string          `json:"officerName"`
}

// Service implements override business logic.
type Service struct {
	store    Store
	resolver StatusResolver
	events   Events
	locks    syncutil.ShardedMutex
}

// NewService creates an override service. Events may be nil.
func NewService(store Store, resolver StatusResolver, events Events) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		events:   events,
	}
}

func generateOverrideID() string {
	return idgen.WithPrefix("ovr_")
}
