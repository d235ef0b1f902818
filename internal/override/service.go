package override

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/codes"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/decision"
	"github.com/fairplayhq/nilguard/internal/metrics"
	"github.com/fairplayhq/nilguard/internal/traces"
)

// Apply validates and records a manual override for a deal.
//
// Concurrent applies to the same deal serialize on a per-deal lock: the
// second writer sees the first one's effect and either succeeds against the
// updated state or fails the same preconditions a sequential caller would.
func (s *Service) Apply(ctx context.Context, dealID string, req ApplyRequest) (*Override, error) {
	ctx, span := traces.StartSpan(ctx, "override.Apply",
		traces.DealID(dealID), traces.OfficerID(req.OfficerID))
	defer span.End()

	if req.NewStatus != decision.StatusGreen && req.NewStatus != decision.StatusYellow {
		return nil, ErrInvalidTargetStatus
	}

	justification := strings.TrimSpace(req.Justification)
	if utf8.RuneCountInString(justification) < MinJustificationLen {
		return nil, ErrJustificationTooShort
	}

	unlock := s.locks.Lock(dealID)
	defer unlock()

	res, err := s.resolver.EffectiveStatus(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if res.Status != decision.StatusRed && res.Status != decision.StatusYellow {
		return nil, ErrNotOverridable
	}

	now := time.Now()
	ov := &Override{
		ID:            generateOverrideID(),
		DealID:        dealID,
		PriorStatus:   res.Status,
		NewStatus:     req.NewStatus,
		Justification: justification,
		OfficerID:     req.OfficerID,
		OfficerName:   req.OfficerName,
		CreatedAt:     now,
	}

	entry := &audit.Entry{
		DealID:    dealID,
		Actor:     audit.Officer(req.OfficerID, req.OfficerName),
		Action:    audit.ActionOverrideApplied,
		Detail:    fmt.Sprintf("status %s -> %s: %s", res.Status, req.NewStatus, justification),
		CreatedAt: now,
	}

	if err := s.store.CreateSuperseding(ctx, ov, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record override")
		return nil, fmt.Errorf("failed to record override: %w", err)
	}

	metrics.OverridesTotal.WithLabelValues(string(ov.NewStatus)).Inc()
	metrics.AuditEntriesTotal.WithLabelValues(audit.ActionOverrideApplied).Inc()

	if s.events != nil {
		s.events.OverrideApplied(ov)
	}

	return ov, nil
}

// Active returns the deal's active override, or ErrNotFound.
func (s *Service) Active(ctx context.Context, dealID string) (*Override, error) {
	return s.store.ActiveForDeal(ctx, dealID)
}

// ListByDeal returns a deal's override history, newest first.
func (s *Service) ListByDeal(ctx context.Context, dealID string, limit int) ([]*Override, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByDeal(ctx, dealID, limit)
}

// ActiveStatus implements deal.OverrideLookup.
func (s *Service) ActiveStatus(ctx context.Context, dealID string) (decision.Status, time.Time, bool, error) {
	ov, err := s.store.ActiveForDeal(ctx, dealID)
	if errors.Is(err, ErrNotFound) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, err
	}
	return ov.NewStatus, ov.CreatedAt, true, nil
}
