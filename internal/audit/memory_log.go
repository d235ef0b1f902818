package audit

import (
	"context"
	"sync"
)

// MemoryLog is an in-memory audit log for development and testing.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []*Entry
	nextID  int64
}

// NewMemoryLog creates an empty in-memory audit log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nextID: 1}
}

func (m *MemoryLog) Append(ctx context.Context, e *Entry) error {
	done := observeOp("append")
	defer done()

	if err := e.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.nextID
	m.nextID++

	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryLog) ListByDeal(ctx context.Context, dealID string, limit int) ([]*Entry, error) {
	done := observeOp("list_by_deal")
	defer done()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Entry
	for _, e := range m.entries {
		if e.DealID != dealID {
			continue
		}
		cp := *e
		result = append(result, &cp)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

var _ Log = (*MemoryLog)(nil)
