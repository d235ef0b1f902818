package assignment

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory assignment store for demo/development mode.
type MemoryStore struct {
	records []*Record
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory assignment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) CreateSuperseding(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, existing := range m.records {
		if existing.ItemID == rec.ItemID && existing.Status == StatusActive {
			existing.Status = StatusSuperseded
			t := now
			existing.SupersededAt = &t
		}
	}

	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *MemoryStore) ActiveForItem(ctx context.Context, itemID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if rec.ItemID == itemID && rec.Status == StatusActive {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotAssigned
}

func (m *MemoryStore) Supersede(ctx context.Context, itemID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.ItemID == itemID && rec.Status == StatusActive {
			now := time.Now()
			rec.Status = StatusSuperseded
			rec.SupersededAt = &now
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotAssigned
}

func (m *MemoryStore) Complete(ctx context.Context, itemID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.ItemID == itemID && rec.Status == StatusActive {
			now := time.Now()
			rec.Status = StatusCompleted
			rec.CompletedAt = &now
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotAssigned
}

func (m *MemoryStore) ListByMember(ctx context.Context, memberID string, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Record
	for _, rec := range m.records {
		if rec.MemberID == memberID {
			cp := *rec
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) Members(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var members []string
	for _, rec := range m.records {
		if !seen[rec.MemberID] {
			seen[rec.MemberID] = true
			members = append(members, rec.MemberID)
		}
	}
	sort.Strings(members)
	return members, nil
}

var _ Store = (*MemoryStore)(nil)
