// Package bulk applies one action across a batch of items.
//
// A batch is never all-or-nothing: items fan out concurrently and each one
// succeeds or fails on its own, so one invalid item never blocks the rest.
// Resubmitting a batch after partial failure is safe without a token —
// items that already transitioned now fail their preconditions (e.g.
// NotOverridable) instead of double-applying.
package bulk

import (
	"context"
	"errors"
	"sync"

	"github.com/fairplayhq/nilguard/internal/assignment"
	"github.com/fairplayhq/nilguard/internal/deal"
	"github.com/fairplayhq/nilguard/internal/decision"
	"github.com/fairplayhq/nilguard/internal/metrics"
	"github.com/fairplayhq/nilguard/internal/override"
	"github.com/fairplayhq/nilguard/internal/traces"
)

// MaxBatchSize bounds one bulk request.
const MaxBatchSize = 500

var (
	ErrInvalidAction = errors.New("action must be approve, reject, or assign")
	ErrEmptyBatch    = errors.New("at least one item id is required")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)

// Action is a bulk operation kind.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionAssign  Action = "assign"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionAssign:
		return true
	}
	return false
}

// Params carries the per-action parameters shared by every item in a batch.
type Params struct {
	// Override params (approve/reject)
	Justification string `json:"justification"`
	OfficerID     string `json:"officerId"`
	OfficerName   string `json:"officerName"`

	// Assignment params (assign)
	MemberID   string              `json:"memberId"`
	AssignedBy string              `json:"assignedBy"`
	Priority   assignment.Priority `json:"priority"`
	Notes      string              `json:"notes"`
}

// Request is one bulk action over a set of items. Batch-size limits are
// enforced in the service so an empty list reports empty_batch rather
// than a generic binding failure.
type Request struct {
	ItemIDs []string `json:"itemIds"`
	Action  Action   `json:"action" binding:"required"`
	Params  Params   `json:"params"`
}

// Result is the partial-success report for a batch.
type Result struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
}

// Overrides applies manual overrides. Satisfied by *override.Service.
type Overrides interface {
	Apply(ctx context.Context, dealID string, req override.ApplyRequest) (*override.Override, error)
}

// Assignments routes items to members. Satisfied by *assignment.Service.
type Assignments interface {
	Assign(ctx context.Context, itemID string, req assignment.AssignRequest) (*assignment.Record, error)
}

// Events receives notifications after a batch completes.
type Events interface {
	BulkCompleted(action Action, succeeded, failed int)
}

// Service fans bulk actions out to the override ledger and assignment board.
type Service struct {
	overrides   Overrides
	assignments Assignments
	events      Events
}

// NewService creates a bulk action service. Events may be nil.
func NewService(overrides Overrides, assignments Assignments, events Events) *Service {
	return &Service{
		overrides:   overrides,
		assignments: assignments,
		events:      events,
	}
}

// Apply runs one action over all items. Item failures are reported in the
// result, never as an error; the returned error covers batch-level
// validation only.
func (s *Service) Apply(ctx context.Context, req Request) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "bulk.Apply",
		traces.Action(string(req.Action)), traces.ItemCount(len(req.ItemIDs)))
	defer span.End()

	if !req.Action.Valid() {
		return nil, ErrInvalidAction
	}
	if len(req.ItemIDs) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(req.ItemIDs) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	// Dedupe while preserving order; a repeated id is one unit of work
	seen := make(map[string]bool, len(req.ItemIDs))
	items := make([]string, 0, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		if !seen[id] {
			seen[id] = true
			items = append(items, id)
		}
	}

	result := &Result{
		Succeeded: []string{},
		Failed:    make(map[string]string),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, itemID := range items {
		wg.Add(1)
		go func(itemID string) {
			defer wg.Done()

			err := s.applyOne(ctx, itemID, req.Action, req.Params)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[itemID] = errorName(err)
				metrics.BulkItemsTotal.WithLabelValues(string(req.Action), "failed").Inc()
			} else {
				result.Succeeded = append(result.Succeeded, itemID)
				metrics.BulkItemsTotal.WithLabelValues(string(req.Action), "succeeded").Inc()
			}
		}(itemID)
	}
	wg.Wait()

	if s.events != nil {
		s.events.BulkCompleted(req.Action, len(result.Succeeded), len(result.Failed))
	}

	return result, nil
}

func (s *Service) applyOne(ctx context.Context, itemID string, action Action, p Params) error {
	switch action {
	case ActionApprove:
		_, err := s.overrides.Apply(ctx, itemID, override.ApplyRequest{
			NewStatus:     decision.StatusGreen,
			Justification: p.Justification,
			OfficerID:     p.OfficerID,
			OfficerName:   p.OfficerName,
		})
		return err
	case ActionReject:
		_, err := s.overrides.Apply(ctx, itemID, override.ApplyRequest{
			NewStatus:     decision.StatusYellow,
			Justification: p.Justification,
			OfficerID:     p.OfficerID,
			OfficerName:   p.OfficerName,
		})
		return err
	case ActionAssign:
		_, err := s.assignments.Assign(ctx, itemID, assignment.AssignRequest{
			MemberID:   p.MemberID,
			AssignedBy: p.AssignedBy,
			Priority:   p.Priority,
			Notes:      p.Notes,
		})
		return err
	}
	return ErrInvalidAction
}

// errorName converts a per-item error to its failure-reason name.
func errorName(err error) string {
	switch {
	case errors.Is(err, deal.ErrNotFound):
		return "DealNotFound"
	case errors.Is(err, override.ErrInvalidTargetStatus):
		return "InvalidTargetStatus"
	case errors.Is(err, override.ErrNotOverridable):
		return "NotOverridable"
	case errors.Is(err, override.ErrJustificationTooShort):
		return "JustificationTooShort"
	case errors.Is(err, assignment.ErrInvalidPriority):
		return "InvalidPriority"
	case errors.Is(err, assignment.ErrNotAssigned):
		return "NotAssigned"
	default:
		return "InternalError"
	}
}
