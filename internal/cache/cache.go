// Package cache keeps recently used tickets close to the relay. The Ticket
// Store stays authoritative: every mutation goes through to it and drops the
// cached copy.
package cache

import (
	"sync"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

// TicketCache stores ticket snapshots keyed by id and by thread root.
type TicketCache interface {
	Get(id int64) (*domain.Ticket, bool)
	GetByThread(threadTS string) (*domain.Ticket, bool)
	Put(ticket *domain.Ticket)
	Invalidate(id int64)
	Len() int
}

// Noop caches nothing.
type Noop struct{}

func (Noop) Get(int64) (*domain.Ticket, bool)          { return nil, false }
func (Noop) GetByThread(string) (*domain.Ticket, bool) { return nil, false }
func (Noop) Put(*domain.Ticket)                        {}
func (Noop) Invalidate(int64)                          {}
func (Noop) Len() int                                  { return 0 }

// Memory is a bounded in-process cache. When full, an arbitrary entry is evicted.
type Memory struct {
	mu       sync.RWMutex
	capacity int
	byID     map[int64]*domain.Ticket
	byThread map[string]int64
}

// NewMemory builds a cache holding at most capacity tickets.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 500
	}
	return &Memory{
		capacity: capacity,
		byID:     make(map[int64]*domain.Ticket, capacity),
		byThread: make(map[string]int64, capacity*2),
	}
}

func (m *Memory) Get(id int64) (*domain.Ticket, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (m *Memory) GetByThread(threadTS string) (*domain.Ticket, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byThread[threadTS]
	if !ok {
		return nil, false
	}
	t, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (m *Memory) Put(ticket *domain.Ticket) {
	if ticket == nil || ticket.ID == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[ticket.ID]; !exists && len(m.byID) >= m.capacity {
		for id := range m.byID {
			m.removeLocked(id)
			break
		}
	}
	m.removeLocked(ticket.ID)
	c := ticket.Clone()
	m.byID[c.ID] = c
	if c.UserThreadTS != "" {
		m.byThread[c.UserThreadTS] = c.ID
	}
	if c.StaffThreadTS != "" {
		m.byThread[c.StaffThreadTS] = c.ID
	}
}

func (m *Memory) Invalidate(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *Memory) removeLocked(id int64) {
	t, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)
	delete(m.byThread, t.UserThreadTS)
	delete(m.byThread, t.StaffThreadTS)
}
