package appeal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/decision"
	"github.com/fairplayhq/nilguard/internal/metrics"
	"github.com/fairplayhq/nilguard/internal/traces"
)

// File opens a new appeal against a deal's current decision. The deal's
// effective status at filing time is snapshotted as the original decision.
func (s *Service) File(ctx context.Context, dealID string, req FileRequest) (*Appeal, error) {
	ctx, span := traces.StartSpan(ctx, "appeal.File", traces.DealID(dealID))
	defer span.End()

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}

	unlock := s.locks.Lock(dealID)
	defer unlock()

	if _, err := s.store.OpenForDeal(ctx, dealID); err == nil {
		return nil, ErrAlreadyOpen
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	res, err := s.resolver.EffectiveStatus(ctx, dealID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	a := &Appeal{
		ID:               generateAppealID(),
		DealID:           dealID,
		AthleteID:        req.AthleteID,
		OriginalDecision: res.Status,
		Reason:           reason,
		Documents:        req.Documents,
		SubmittedAt:      now,
		Status:           StatusSubmitted,
	}

	entry := &audit.Entry{
		DealID:    dealID,
		Actor:     audit.Athlete(req.AthleteID),
		Action:    audit.ActionAppealFiled,
		Detail:    fmt.Sprintf("appeal filed against %s decision: %s", res.Status, reason),
		CreatedAt: now,
	}

	if err := s.store.CreateWithAudit(ctx, a, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to file appeal")
		return nil, fmt.Errorf("failed to file appeal: %w", err)
	}

	metrics.AppealsFiledTotal.Inc()
	metrics.AuditEntriesTotal.WithLabelValues(audit.ActionAppealFiled).Inc()

	if s.events != nil {
		s.events.AppealFiled(a)
	}

	return a, nil
}

// BeginReview moves a submitted appeal to under_review. Both states are
// open, so this transition is advisory and not audited.
func (s *Service) BeginReview(ctx context.Context, appealID string) (*Appeal, error) {
	a, err := s.store.Get(ctx, appealID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(a.DealID)
	defer unlock()

	a, err = s.store.Get(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusResolved {
		return nil, ErrAlreadyResolved
	}
	if a.Status == StatusUnderReview {
		return a, nil
	}

	a.Status = StatusUnderReview
	if err := s.store.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update appeal: %w", err)
	}
	return a, nil
}

// Resolve closes an open appeal. Modified and reversed resolutions require a
// valid new decision; upheld ignores any supplied one and the original
// decision stands. Resolution is terminal.
func (s *Service) Resolve(ctx context.Context, appealID string, req ResolveRequest) (*Appeal, error) {
	ctx, span := traces.StartSpan(ctx, "appeal.Resolve",
		traces.AppealID(appealID), traces.OfficerID(req.OfficerID))
	defer span.End()

	if !req.Resolution.Valid() {
		return nil, ErrInvalidResolution
	}

	newDecision := req.NewDecision
	switch req.Resolution {
	case ResolutionModified, ResolutionReversed:
		if newDecision == nil {
			return nil, ErrNewDecisionRequired
		}
		if !newDecision.Valid() {
			return nil, ErrInvalidNewDecision
		}
	case ResolutionUpheld:
		newDecision = nil
	}

	a, err := s.store.Get(ctx, appealID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(a.DealID)
	defer unlock()

	a, err = s.store.Get(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusResolved {
		return nil, ErrAlreadyResolved
	}

	now := time.Now()
	a.Status = StatusResolved
	a.Resolution = req.Resolution
	a.ResolutionNotes = strings.TrimSpace(req.ResolutionNotes)
	a.InternalNotes = strings.TrimSpace(req.InternalNotes)
	a.NewDecision = newDecision
	a.ResolvedBy = req.OfficerID
	a.ResolvedAt = &now

	detail := fmt.Sprintf("appeal %s", req.Resolution)
	if newDecision != nil {
		detail = fmt.Sprintf("appeal %s, new decision %s", req.Resolution, *newDecision)
	}
	entry := &audit.Entry{
		DealID:    a.DealID,
		Actor:     audit.Officer(req.OfficerID, req.OfficerName),
		Action:    audit.ActionAppealResolved,
		Detail:    detail,
		CreatedAt: now,
	}

	if err := s.store.ResolveWithAudit(ctx, a, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve appeal")
		return nil, fmt.Errorf("failed to resolve appeal: %w", err)
	}

	metrics.AppealsResolvedTotal.WithLabelValues(string(req.Resolution)).Inc()
	metrics.AuditEntriesTotal.WithLabelValues(audit.ActionAppealResolved).Inc()
	metrics.AppealResolutionDuration.Observe(now.Sub(a.SubmittedAt).Seconds())

	if s.events != nil {
		s.events.AppealResolved(a)
	}

	return a, nil
}

// Get returns an appeal by ID.
func (s *Service) Get(ctx context.Context, id string) (*Appeal, error) {
	return s.store.Get(ctx, id)
}

// ListByDeal returns a deal's appeals, newest first.
func (s *Service) ListByDeal(ctx context.Context, dealID string, limit int) ([]*Appeal, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByDeal(ctx, dealID, limit)
}

// QueueItem is one open appeal in the review queue.
type QueueItem struct {
	*Appeal
	DaysOpen int `json:"daysOpen"`
}

// Queue is the open-appeal review queue, oldest first.
type Queue struct {
	Items       []*QueueItem `json:"items"`
	Submitted   int          `json:"submitted"`
	UnderReview int          `json:"underReview"`
}

// Queue returns open appeals oldest-first with days-open and state counts.
func (s *Service) Queue(ctx context.Context, limit int) (*Queue, error) {
	if limit <= 0 {
		limit = 100
	}

	open, err := s.store.ListOpen(ctx, limit)
	if err != nil {
		return nil, err
	}

	q := &Queue{Items: make([]*QueueItem, 0, len(open))}
	now := time.Now()
	for _, a := range open {
		q.Items = append(q.Items, &QueueItem{
			Appeal:   a,
			DaysOpen: int(now.Sub(a.SubmittedAt).Hours() / 24),
		})
		switch a.Status {
		case StatusSubmitted:
			q.Submitted++
		case StatusUnderReview:
			q.UnderReview++
		}
	}
	return q, nil
}

// LatestResolvedDecision implements deal.AppealLookup.
func (s *Service) LatestResolvedDecision(ctx context.Context, dealID string) (decision.Decision, time.Time, bool, error) {
	a, err := s.store.LatestResolvedForDeal(ctx, dealID)
	if errors.Is(err, ErrNotFound) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, err
	}
	return *a.NewDecision, *a.ResolvedAt, true, nil
}

// HasOpen implements deal.AppealLookup.
func (s *Service) HasOpen(ctx context.Context, dealID string) (bool, error) {
	_, err := s.store.OpenForDeal(ctx, dealID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
