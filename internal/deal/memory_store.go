package deal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/decision"
)

// MemoryStore is an in-memory deal store for demo/development mode.
// Audit entries couple to writes under the store lock: the entry is appended
// first and undone if the primary write fails.
type MemoryStore struct {
	deals map[string]*Deal
	audit *audit.MemoryLog
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory deal store.
func NewMemoryStore(auditLog *audit.MemoryLog) *MemoryStore {
	return &MemoryStore{
		deals: make(map[string]*Deal),
		audit: auditLog,
	}
}

func (m *MemoryStore) Create(ctx context.Context, d *Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *d
	m.deals[d.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, d *Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deals[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	m.deals[d.ID] = &cp
	return nil
}

func (m *MemoryStore) List(ctx context.Context, athleteID string, status string, limit int, opts ...ListOption) ([]*Deal, error) {
	o := applyListOpts(opts)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Deal
	for _, d := range m.deals {
		if athleteID != "" && d.AthleteID != athleteID {
			continue
		}
		if status != "" && string(d.AutomatedStatus) != status {
			continue
		}
		matched = append(matched, d)
	}

	// Newest first, ID as tiebreaker for a stable cursor order
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	var result []*Deal
	for _, d := range matched {
		if o.cursor != nil && !afterCursor(d, o.cursor.CreatedAt, o.cursor.ID) {
			continue
		}
		cp := *d
		result = append(result, &cp)
		if len(result) > limit {
			break
		}
	}
	return result, nil
}

// afterCursor reports whether d sorts strictly after the cursor position in
// the newest-first order.
func afterCursor(d *Deal, createdAt time.Time, id string) bool {
	if d.CreatedAt.Before(createdAt) {
		return true
	}
	return d.CreatedAt.Equal(createdAt) && d.ID < id
}

func (m *MemoryStore) SetAutomatedScore(ctx context.Context, id string, score float64, status decision.Status, entry *audit.Entry) (*Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deals[id]
	if !ok {
		return nil, ErrNotFound
	}

	if err := m.audit.Append(ctx, entry); err != nil {
		return nil, err
	}

	sc := score
	d.AutomatedScore = &sc
	d.AutomatedStatus = status
	d.UpdatedAt = time.Now()

	cp := *d
	return &cp, nil
}

var _ Store = (*MemoryStore)(nil)
