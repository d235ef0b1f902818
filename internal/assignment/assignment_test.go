package assignment

import (
	"context"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService(NewMemoryStore(), 7)
}

func TestAssign_DefaultsAndDueWindows(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rec, err := svc.Assign(ctx, "deal_0123456789ab", AssignRequest{
		MemberID: "mem_0123456789ab",
	})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if rec.Priority != PriorityNormal {
		t.Errorf("Expected default normal priority, got %s", rec.Priority)
	}
	if rec.Status != StatusActive {
		t.Errorf("Expected active, got %s", rec.Status)
	}

	wantDue := rec.CreatedAt.Add(7 * 24 * time.Hour)
	if !rec.DueAt.Equal(wantDue) {
		t.Errorf("Expected due %v, got %v", wantDue, rec.DueAt)
	}

	critical, _ := svc.Assign(ctx, "deal_0123456789cd", AssignRequest{
		MemberID: "mem_0123456789ab",
		Priority: PriorityCritical,
	})
	if got := critical.DueAt.Sub(critical.CreatedAt); got != 24*time.Hour {
		t.Errorf("Expected 1-day window for critical, got %v", got)
	}
}

func TestAssign_InvalidPriority(t *testing.T) {
	svc := newTestService()
	_, err := svc.Assign(context.Background(), "deal_x", AssignRequest{
		MemberID: "mem_0123456789ab",
		Priority: "urgent",
	})
	if err != ErrInvalidPriority {
		t.Errorf("Expected ErrInvalidPriority, got %v", err)
	}
}

func TestAssign_SupersedesSilently(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Assign(ctx, "deal_0123456789ab", AssignRequest{MemberID: "mem_alpha0000000"})
	if err != nil {
		t.Fatalf("First assign failed: %v", err)
	}

	second, err := svc.Assign(ctx, "deal_0123456789ab", AssignRequest{MemberID: "mem_beta00000000"})
	if err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}

	active, err := svc.Active(ctx, "deal_0123456789ab")
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if active.ID != second.ID || active.MemberID != "mem_beta00000000" {
		t.Errorf("Expected second assignment active, got %+v", active)
	}

	// Old record retained for history, marked superseded
	history, _ := svc.ListByMember(ctx, "mem_alpha0000000", 0)
	if len(history) != 1 {
		t.Fatalf("Expected 1 historical record, got %d", len(history))
	}
	if history[0].ID != first.ID || history[0].Status != StatusSuperseded || history[0].SupersededAt == nil {
		t.Errorf("Expected first record superseded, got %+v", history[0])
	}
}

func TestUnassign(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Unassign(ctx, "deal_unassigned0"); err != ErrNotAssigned {
		t.Errorf("Expected ErrNotAssigned, got %v", err)
	}

	svc.Assign(ctx, "deal_0123456789ab", AssignRequest{MemberID: "mem_alpha0000000"})
	rec, err := svc.Unassign(ctx, "deal_0123456789ab")
	if err != nil {
		t.Fatalf("Unassign failed: %v", err)
	}
	if rec.Status != StatusSuperseded {
		t.Errorf("Expected superseded, got %s", rec.Status)
	}

	if _, err := svc.Active(ctx, "deal_0123456789ab"); err != ErrNotAssigned {
		t.Errorf("Expected no active assignment, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	svc.Assign(ctx, "deal_0123456789ab", AssignRequest{MemberID: "mem_alpha0000000"})
	rec, err := svc.Complete(ctx, "deal_0123456789ab")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if rec.Status != StatusCompleted || rec.CompletedAt == nil {
		t.Errorf("Expected completed with timestamp, got %+v", rec)
	}

	if _, err := svc.Complete(ctx, "deal_0123456789ab"); err != ErrNotAssigned {
		t.Errorf("Expected ErrNotAssigned on double complete, got %v", err)
	}
}

func TestWorkload_DerivedCounts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// Fixed clock: Wednesday 2026-01-07 12:00 UTC
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	member := "mem_alpha0000000"

	// Open, not overdue
	svc.Assign(ctx, "deal_open00000001", AssignRequest{MemberID: member})

	// Open and overdue
	past := now.Add(-time.Hour)
	svc.Assign(ctx, "deal_overdue00001", AssignRequest{MemberID: member, DueAt: &past})

	// Completed this week (Wednesday, after Monday 00:00)
	svc.Assign(ctx, "deal_done00000001", AssignRequest{MemberID: member})
	if _, err := svc.Complete(ctx, "deal_done00000001"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Superseded records don't count
	svc.Assign(ctx, "deal_moved0000001", AssignRequest{MemberID: member})
	svc.Assign(ctx, "deal_moved0000001", AssignRequest{MemberID: "mem_beta00000000"})

	w, err := svc.Workload(ctx, member)
	if err != nil {
		t.Fatalf("Workload failed: %v", err)
	}
	if w.Open != 2 {
		t.Errorf("Expected 2 open, got %d", w.Open)
	}
	if w.Overdue != 1 {
		t.Errorf("Expected 1 overdue, got %d", w.Overdue)
	}
	if w.CompletedThisWeek != 1 {
		t.Errorf("Expected 1 completed this week, got %d", w.CompletedThisWeek)
	}
}

func TestWorkload_CompletedLastWeekExcluded(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, 7)
	ctx := context.Background()

	member := "mem_alpha0000000"
	svc.Assign(ctx, "deal_old000000001", AssignRequest{MemberID: member})
	if _, err := svc.Complete(ctx, "deal_old000000001"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Move the clock a week forward: last week's completion no longer counts
	svc.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }

	w, err := svc.Workload(ctx, member)
	if err != nil {
		t.Fatalf("Workload failed: %v", err)
	}
	if w.CompletedThisWeek != 0 {
		t.Errorf("Expected 0 completed this week, got %d", w.CompletedThisWeek)
	}
}

func TestTeamWorkload(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	svc.Assign(ctx, "deal_a0000000001", AssignRequest{MemberID: "mem_alpha0000000"})
	svc.Assign(ctx, "deal_b0000000001", AssignRequest{MemberID: "mem_beta00000000"})
	svc.Assign(ctx, "deal_b0000000002", AssignRequest{MemberID: "mem_beta00000000"})

	workloads, err := svc.TeamWorkload(ctx)
	if err != nil {
		t.Fatalf("TeamWorkload failed: %v", err)
	}
	if len(workloads) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(workloads))
	}

	byMember := make(map[string]*Workload)
	for _, w := range workloads {
		byMember[w.MemberID] = w
	}
	if byMember["mem_alpha0000000"].Open != 1 || byMember["mem_beta00000000"].Open != 2 {
		t.Errorf("Unexpected open counts: %+v", workloads)
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"wednesday",
			time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC),
			time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			"monday morning",
			time.Date(2026, 1, 5, 0, 30, 0, 0, time.UTC),
			time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			"sunday",
			time.Date(2026, 1, 11, 23, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := startOfWeek(tt.in); !got.Equal(tt.want) {
				t.Errorf("startOfWeek(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
