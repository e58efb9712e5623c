package msglog

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Log, used by tests and by one-shot CLI runs
// that have no database at hand.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
}

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (m *Memory) Append(_ context.Context, e Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.nextID
	m.nextID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *Memory) Get(_ context.Context, id int64) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.entries {
		if m.entries[i].ID == id {
			e := m.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (m *Memory) Transition(_ context.Context, id int64, to Status, rejectReason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID != id {
			continue
		}
		if !CanTransition(m.entries[i].Status, to) {
			return nil
		}
		m.entries[i].Status = to
		if to == StatusRejected {
			m.entries[i].RejectReason = rejectReason
		}
		return nil
	}
	return nil
}

func (m *Memory) Query(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if f.Match(&m.entries[i]) {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}
