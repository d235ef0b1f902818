package assignment

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Assign routes an item to a member. An existing assignment is silently
// superseded — last write wins. When DueAt is unset the due date derives
// from the priority window.
func (s *Service) Assign(ctx context.Context, itemID string, req AssignRequest) (*Record, error) {
	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	unlock := s.locks.Lock(itemID)
	defer unlock()

	now := s.now()
	dueAt := now.Add(s.dueWindow(priority))
	if req.DueAt != nil {
		dueAt = *req.DueAt
	}

	rec := &Record{
		ID:         generateAssignmentID(),
		ItemID:     itemID,
		MemberID:   req.MemberID,
		AssignedBy: req.AssignedBy,
		Priority:   priority,
		Notes:      strings.TrimSpace(req.Notes),
		DueAt:      dueAt,
		Status:     StatusActive,
		CreatedAt:  now,
	}

	if err := s.store.CreateSuperseding(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to assign item: %w", err)
	}
	return rec, nil
}

// Unassign removes an item's active assignment.
func (s *Service) Unassign(ctx context.Context, itemID string) (*Record, error) {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	return s.store.Supersede(ctx, itemID)
}

// Complete marks an item's active assignment done.
func (s *Service) Complete(ctx context.Context, itemID string) (*Record, error) {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	return s.store.Complete(ctx, itemID)
}

// Active returns an item's active assignment, or ErrNotAssigned.
func (s *Service) Active(ctx context.Context, itemID string) (*Record, error) {
	return s.store.ActiveForItem(ctx, itemID)
}

// Workload computes a member's assignment summary from their records.
func (s *Service) Workload(ctx context.Context, memberID string) (*Workload, error) {
	records, err := s.store.ListByMember(ctx, memberID, 0)
	if err != nil {
		return nil, err
	}

	now := s.now()
	weekStart := startOfWeek(now)
	w := &Workload{MemberID: memberID}
	for _, rec := range records {
		switch rec.Status {
		case StatusActive:
			w.Open++
			if rec.DueAt.Before(now) {
				w.Overdue++
			}
		case StatusCompleted:
			if rec.CompletedAt != nil && !rec.CompletedAt.Before(weekStart) {
				w.CompletedThisWeek++
			}
		}
	}
	return w, nil
}

// TeamWorkload computes workloads for every member holding a record.
func (s *Service) TeamWorkload(ctx context.Context) ([]*Workload, error) {
	members, err := s.store.Members(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*Workload, 0, len(members))
	for _, memberID := range members {
		w, err := s.Workload(ctx, memberID)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, nil
}

// ListByMember returns a member's assignment history, newest first.
func (s *Service) ListByMember(ctx context.Context, memberID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByMember(ctx, memberID, limit)
}

// dueWindow returns the default due window for a priority.
func (s *Service) dueWindow(p Priority) time.Duration {
	switch p {
	case PriorityCritical:
		return 24 * time.Hour
	case PriorityHigh:
		return 3 * 24 * time.Hour
	case PriorityLow:
		return 14 * 24 * time.Hour
	default:
		return time.Duration(s.normalDueDays) * 24 * time.Hour
	}
}

// startOfWeek returns the most recent Monday 00:00 UTC.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	day := t.Truncate(24 * time.Hour)
	return day.AddDate(0, 0, -daysSinceMonday)
}
