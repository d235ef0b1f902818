// Package deal manages disclosed NIL deals and their compliance status.
//
// A deal carries the automated score and status produced by the scoring
// collaborator. The status officers and athletes actually see is the
// *effective* status, folded together by the Resolver: a resolved appeal's
// new decision beats an active override, which beats the automated status,
// and a deal that has never been scored is pending.
package deal

import (
	"context"
	"errors"
	"time"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/decision"
	"github.com/fairplayhq/nilguard/internal/idgen"
	"github.com/fairplayhq/nilguard/internal/pagination"
)

var (
	ErrNotFound         = errors.New("deal not found")
	ErrScoreUnavailable = errors.New("score unavailable")
)

// Deal represents a disclosed compensation arrangement under review.
type Deal struct {
	ID              string          `json:"id"`
	AthleteID       string          `json:"athleteId"`
	Counterparty    string          `json:"counterparty"`
	Amount          float64         `json:"amount"`
	SubmittedAt     time.Time       `json:"submittedAt"`
	AutomatedScore  *float64        `json:"automatedScore,omitempty"`
	AutomatedStatus decision.Status `json:"automatedStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ListOption configures optional parameters for list queries.
type ListOption func(*listOpts)

type listOpts struct {
	cursor *pagination.Cursor
}

func applyListOpts(opts []ListOption) listOpts {
	var o listOpts
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithCursor filters results to items after the given cursor position.
func WithCursor(cursor string) ListOption {
	return func(o *listOpts) {
		c, err := pagination.Decode(cursor)
		if err == nil {
			o.cursor = c
		}
	}
}

// Store persists deal data.
type Store interface {
	Create(ctx context.Context, d *Deal) error
	Get(ctx context.Context, id string) (*Deal, error)
	Update(ctx context.Context, d *Deal) error
	// List returns deals newest-first, optionally filtered by athlete and
	// automated status. Fetches limit+1 rows so callers can compute a cursor.
	List(ctx context.Context, athleteID string, status string, limit int, opts ...ListOption) ([]*Deal, error)
	// SetAutomatedScore writes the automated fields and the audit entry in
	// the same transaction. Returns the updated deal.
	SetAutomatedScore(ctx context.Context, id string, score float64, status decision.Status, entry *audit.Entry) (*Deal, error)
}

// CreateRequest contains the parameters for disclosing a deal.
type CreateRequest struct {
	AthleteID    string     `json:"athleteId" binding:"required"`
	Counterparty string     `json:"counterparty" binding:"required"`
	Amount       float64    `json:"amount" binding:"required"`
	SubmittedAt  *time.Time `json:"submittedAt"`
}

// RecordScoreRequest contains an externally computed score. When Score is
// nil the service asks its ScoreProvider instead.
type RecordScoreRequest struct {
	Score  *float64        `json:"score"`
	Status decision.Status `json:"status"`
}

// Events receives notifications after successful writes. Implementations
// must not block; all methods are called synchronously on the request path.
type Events interface {
	ScoreRecorded(d *Deal, score float64, status decision.Status)
	StatusChanged(dealID, athleteID string, status decision.Status, source string)
}

// Service implements deal business logic.
type Service struct {
	store    Store
	resolver *Resolver
	provider ScoreProvider
	events   Events
}

// NewService creates a deal service. Provider and events may be nil.
func NewService(store Store, resolver *Resolver, provider ScoreProvider, events Events) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		provider: provider,
		events:   events,
	}
}

func generateDealID() string {
	return idgen.WithPrefix("deal_")
}
