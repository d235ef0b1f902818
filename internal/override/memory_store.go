package override

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fairplayhq/nilguard/internal/audit"
)

// MemoryStore is an in-memory override store for demo/development mode.
type MemoryStore struct {
	overrides map[string][]*Override // dealID -> overrides, insertion order
	audit     *audit.MemoryLog
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory override store.
func NewMemoryStore(auditLog *audit.MemoryLog) *MemoryStore {
	return &MemoryStore{
		overrides: make(map[string][]*Override),
		audit:     auditLog,
	}
}

func (m *MemoryStore) CreateSuperseding(ctx context.Context, ov *Override, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Audit entry first; nothing below can fail
	if err := m.audit.Append(ctx, entry); err != nil {
		return err
	}

	now := time.Now()
	for _, existing := range m.overrides[ov.DealID] {
		if existing.Active() {
			t := now
			existing.SupersededAt = &t
		}
	}

	cp := *ov
	m.overrides[ov.DealID] = append(m.overrides[ov.DealID], &cp)
	return nil
}

func (m *MemoryStore) ActiveForDeal(ctx context.Context, dealID string) (*Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ov := range m.overrides[dealID] {
		if ov.Active() {
			cp := *ov
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListByDeal(ctx context.Context, dealID string, limit int) ([]*Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Override
	for _, ov := range m.overrides[dealID] {
		cp := *ov
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ Store = (*MemoryStore)(nil)
