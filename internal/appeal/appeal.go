// Package appeal implements the athlete appeal workflow.
//
// An appeal challenges a deal's current decision. Its lifecycle is
// submitted -> under_review -> resolved, where under_review is optional:
// both submitted and under_review count as open, and resolution is reachable
// directly from submitted. Resolution is terminal. A deal carries at most
// one open appeal; once resolved, a new appeal may be filed against the new
// decision.
package appeal

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

var (
	ErrNotFound            = errors.New("appeal not found")
	ErrAlreadyOpen         = errors.New("an unresolved appeal already exists for this deal")
	ErrAlreadyResolved     = errors.New("appeal already resolved")
	ErrInvalidResolution   = errors.New("resolution must be upheld, modified, or reversed")
	ErrNewDecisionRequired = errors.New("new decision required for modified or reversed resolution")
	ErrInvalidNewDecision  = errors.New("invalid new decision")
)

// Status is the lifecycle state of an appeal.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
)

// Resolution is the outcome of a resolved appeal.
type Resolution string

const (
	ResolutionUpheld   Resolution = "upheld"
	ResolutionModified Resolution = "modified"
	ResolutionReversed Resolution = "reversed"
)

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionUpheld, ResolutionModified, ResolutionReversed:
		return true
	}
	return false
}

// Appeal represents an athlete's challenge to a decision.
type Appeal struct {
	ID               string             `json:"id"`
	DealID           string             `json:"dealId"`
	AthleteID        string             `json:"athleteId"`
	OriginalDecision decision.Status    `json:"originalDecision"`
	Reason           string             `json:"reason"`
	Documents        []string           `json:"documents,omitempty"`
	SubmittedAt      time.Time          `json:"submittedAt"`
	Status           Status             `json:"status"`
	Resolution       Resolution         `json:"resolution,omitempty"`
	ResolutionNotes  string             `json:"resolutionNotes,omitempty"`
	InternalNotes    string             `json:"internalNotes,omitempty"`
	NewDecision      *decision.Decision `json:"newDecision,omitempty"`
	ResolvedBy       string             `json:"resolvedBy,omitempty"`
	ResolvedAt       *time.Time         `json:"resolvedAt,omitempty"`
}

// Open reports whether the appeal is still unresolved.
func (a *Appeal) Open() bool {
	return a.Status != StatusResolved
}

// Store persists appeal data.
type Store interface {
	// CreateWithAudit inserts the appeal and its audit entry atomically.
	CreateWithAudit(ctx context.Context, a *Appeal, entry *audit.Entry) error
	Get(ctx context.Context, id string) (*Appeal, error)
	// Update writes non-status-affecting changes (review transition).
	Update(ctx context.Context, a *Appeal) error
	// ResolveWithAudit writes the resolved appeal and its audit entry
	// atomically.
	ResolveWithAudit(ctx context.Context, a *Appeal, entry *audit.Entry) error
	// OpenForDeal returns the deal's open appeal, or ErrNotFound.
	OpenForDeal(ctx context.Context, dealID string) (*Appeal, error)
	// LatestResolvedForDeal returns the most recently resolved appeal that
	// changed the decision (has a new decision), or ErrNotFound.
	LatestResolvedForDeal(ctx context.Context, dealID string) (*Appeal, error)
	// ListOpen returns open appeals oldest-first.
	ListOpen(ctx context.Context, limit int) ([]*Appeal, error)
	// ListByDeal returns a deal's appeals newest-first.
	ListByDeal(ctx context.Context, dealID string, limit int) ([]*Appeal, error)
}

// StatusResolver provides a deal's current effective status. Satisfied by
// *deal.Resolver.
type StatusResolver interface {
	EffectiveStatus(ctx context.Context, dealID string) (*deal.Resolution, error)
}

// Events receives notifications after successful writes.
type Events interface {
	AppealFiled(a *Appeal)
	AppealResolved(a *Appeal)
}

// FileRequest contains the parameters for filing an appeal.
type FileRequest struct {
	AthleteID string   `json:"athleteId" binding:"required"`
	Reason    string   `json:"reason" binding:"required"`
	Documents []string `json:"documents"`
}

// ResolveRequest contains the parameters for resolving an appeal.
type ResolveRequest struct {
	Resolution      Resolution         `json:"resolution" binding:"required"`
	ResolutionNotes string             `json:"resolutionNotes"`
	InternalNotes   string             `json:"internalNotes"`
	NewDecision     *decision.Decision `json:"newDecision"`
	OfficerID       string             `json:"officerId" binding:"required"`
	OfficerName     string             `json:"officerName"`
}

// Service implements the appeal workflow.
type Service struct {
	store    Store
	resolver StatusResolver
	events   Events
	locks    syncutil.ShardedMutex
}

// NewService creates an appeal service. Events may be nil.
func NewService(store Store, resolver StatusResolver, events Events) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		events:   events,
	}
}

func generateAppealID() string {
	return idgen.WithPrefix("app_")
}
