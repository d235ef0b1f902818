package appeal

import (
	"context"
	"sort"
	"sync"

	"github.com/fairplayhq/nilguard/internal/audit"
)

// MemoryStore is an in-memory appeal store for demo/development mode.
type MemoryStore struct {
	appeals map[string]*Appeal
	audit   *audit.MemoryLog
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory appeal store.
func NewMemoryStore(auditLog *audit.MemoryLog) *MemoryStore {
	return &MemoryStore{
		appeals: make(map[string]*Appeal),
		audit:   auditLog,
	}
}

func (m *MemoryStore) CreateWithAudit(ctx context.Context, a *Appeal, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.audit.Append(ctx, entry); err != nil {
		return err
	}

	cp := copyAppeal(a)
	m.appeals[a.ID] = cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appeals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAppeal(a), nil
}

func (m *MemoryStore) Update(ctx context.Context, a *Appeal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appeals[a.ID]; !ok {
		return ErrNotFound
	}
	m.appeals[a.ID] = copyAppeal(a)
	return nil
}

func (m *MemoryStore) ResolveWithAudit(ctx context.Context, a *Appeal, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appeals[a.ID]; !ok {
		return ErrNotFound
	}

	if err := m.audit.Append(ctx, entry); err != nil {
		return err
	}

	m.appeals[a.ID] = copyAppeal(a)
	return nil
}

func (m *MemoryStore) OpenForDeal(ctx context.Context, dealID string) (*Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.appeals {
		if a.DealID == dealID && a.Open() {
			return copyAppeal(a), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) LatestResolvedForDeal(ctx context.Context, dealID string) (*Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *Appeal
	for _, a := range m.appeals {
		if a.DealID != dealID || a.Status != StatusResolved || a.NewDecision == nil {
			continue
		}
		if latest == nil || a.ResolvedAt.After(*latest.ResolvedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return copyAppeal(latest), nil
}

func (m *MemoryStore) ListOpen(ctx context.Context, limit int) ([]*Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Appeal
	for _, a := range m.appeals {
		if a.Open() {
			result = append(result, copyAppeal(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) ListByDeal(ctx context.Context, dealID string, limit int) ([]*Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Appeal
	for _, a := range m.appeals {
		if a.DealID == dealID {
			result = append(result, copyAppeal(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyAppeal(a *Appeal) *Appeal {
	cp := *a
	if a.Documents != nil {
		cp.Documents = append([]string(nil), a.Documents...)
	}
	if a.NewDecision != nil {
		d := *a.NewDecision
		cp.NewDecision = &d
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

var _ Store = (*MemoryStore)(nil)
