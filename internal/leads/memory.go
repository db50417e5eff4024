package leads

import (
	"context"
	"sync"
)

const memoryCapacity = 50

// MemorySink keeps the most recent leads in process. Used when no webhook or database is configured.
type MemorySink struct {
	mu    sync.RWMutex
	leads []Enriched
}

// NewMemorySink constructs an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{leads: make([]Enriched, 0)}
}

func (m *MemorySink) Name() string { return "memory" }

// Deliver prepends the lead, keeping at most 50.
func (m *MemorySink) Deliver(_ context.Context, lead Enriched) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leads = append([]Enriched{lead}, m.leads...)
	if len(m.leads) > memoryCapacity {
		m.leads = m.leads[:memoryCapacity]
	}
	return nil
}

// Recent returns a snapshot, newest first.
func (m *MemorySink) Recent(_ context.Context, limit int) ([]Enriched, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.leads) {
		limit = len(m.leads)
	}
	snapshot := make([]Enriched, limit)
	copy(snapshot, m.leads[:limit])
	return snapshot, nil
}
