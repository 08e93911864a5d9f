// Package dedup drops platform events that were already delivered once.
package dedup

import (
	"context"
	"sync"
)

// DefaultCapacity bounds the in-memory record of seen event ids.
const DefaultCapacity = 1000

// Deduplicator reports whether an event id was already seen and records it if not.
type Deduplicator interface {
	Seen(ctx context.Context, id string) bool
}

// Memory is a bounded set of event ids. When full, one arbitrary id is
// forgotten before the new one is stored.
type Memory struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
}

// NewMemory builds a deduplicator holding at most capacity ids.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{capacity: capacity, seen: make(map[string]struct{}, capacity)}
}

// Seen never reports an empty id as a duplicate.
func (m *Memory) Seen(_ context.Context, id string) bool {
	if id == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[id]; ok {
		return true
	}
	if len(m.seen) >= m.capacity {
		for k := range m.seen {
			delete(m.seen, k)
			break
		}
	}
	m.seen[id] = struct{}{}
	return false
}

// Len returns the number of ids currently remembered.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
