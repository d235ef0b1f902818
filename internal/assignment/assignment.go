// Package assignment tracks which team member owns which open action item.
//
// Assignment is advisory routing, not an audit-critical fact: records never
// touch the audit trail, and assigning an already-assigned item silently
// supersedes the prior record. Superseded records are retained for workload
// history.
package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/fairplayhq/nilguard/internal/idgen"
	"github.com/fairplayhq/nilguard/internal/syncutil"
)

var (
	ErrNotAssigned     = errors.New("item has no active assignment")
	ErrInvalidPriority = errors.New("invalid priority")
)

// Priority of an assigned item.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Status of an assignment record.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusCompleted  Status = "completed"
)

// Record maps an action item to a team member.
type Record struct {
	ID           string     `json:"id"`
	ItemID       string     `json:"itemId"`
	MemberID     string     `json:"memberId"`
	AssignedBy   string     `json:"assignedBy,omitempty"`
	Priority     Priority   `json:"priority"`
	Notes        string     `json:"notes,omitempty"`
	DueAt        time.Time  `json:"dueAt"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	SupersededAt *time.Time `json:"supersededAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Workload is a member's derived assignment summary. Always recomputed from
// records on read, never stored.
type Workload struct {
	MemberID          string `json:"memberId"`
	Open              int    `json:"open"`
	Overdue           int    `json:"overdue"`
	CompletedThisWeek int    `json:"completedThisWeek"`
}

// Store persists assignment records.
type Store interface {
	// CreateSuperseding marks any active record for the item superseded and
	// inserts rec as active.
	CreateSuperseding(ctx context.Context, rec *Record) error
	// ActiveForItem returns the item's active record, or ErrNotAssigned.
	ActiveForItem(ctx context.Context, itemID string) (*Record, error)
	// Supersede marks the item's active record superseded, or ErrNotAssigned.
	Supersede(ctx context.Context, itemID string) (*Record, error)
	// Complete marks the item's active record completed, or ErrNotAssigned.
	Complete(ctx context.Context, itemID string) (*Record, error)
	// ListByMember returns all of a member's records, newest first.
	ListByMember(ctx context.Context, memberID string, limit int) ([]*Record, error)
	// Members returns the distinct member IDs holding any record.
	Members(ctx context.Context) ([]string, error)
}

// AssignRequest contains the parameters for assigning an item.
type AssignRequest struct {
	MemberID   string     `json:"memberId" binding:"required"`
	AssignedBy string     `json:"assignedBy"`
	Priority   Priority   `json:"priority"`
	Notes      string     `json:"notes"`
	DueAt      *time.Time `json:"dueAt"`
}

// Service implements assignment business logic.
type Service struct {
	store Store
	// normalDueDays is the due window for normal-priority items.
	normalDueDays int
	locks         syncutil.ShardedMutex

	// now is swappable in tests
	now func() time.Time
}

// NewService creates an assignment service.
func NewService(store Store, normalDueDays int) *Service {
	if normalDueDays <= 0 {
		normalDueDays = 7
	}
	return &Service{
		store:         store,
		normalDueDays: normalDueDays,
		now:           time.Now,
	}
}

func generateAssignmentID() string {
	return idgen.WithPrefix("asg_")
}
