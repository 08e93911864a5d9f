package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/relaydesk/ticket-relay/internal/domain"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// MemoryStore is a process-local TicketStore for tests and local runs.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	nextMsg  int64
	tickets  map[int64]*domain.Ticket
	messages []domain.TicketMessage
	staff    map[string]domain.StaffMember
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets: make(map[int64]*domain.Ticket),
		staff:   make(map[string]domain.StaffMember),
		now:     time.Now,
	}
}

func (s *MemoryStore) CreateTicket(_ context.Context, ticket *domain.Ticket) error {
	if err := validateTicket(ticket); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.HasThread(ticket.UserThreadTS) || t.HasThread(ticket.StaffThreadTS) {
			return apperrors.NewConflict("thread already bound to a ticket", map[string]any{"ticket_id": t.ID})
		}
	}
	s.nextID++
	ticket.ID = s.nextID
	ticket.CreatedAt = s.now()
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (s *MemoryStore) GetTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return t.Clone(), nil
}

func (s *MemoryStore) FindTicket(_ context.Context, threadTS string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.HasThread(threadTS) {
			return t.Clone(), nil
		}
	}
	return nil, apperrors.NewNotFound("ticket", map[string]any{"thread_ts": threadTS})
}

func (s *MemoryStore) ListTickets(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, t := range s.tickets {
		if filter.RequesterID != nil && t.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.ClaimedBy != nil && (t.ClaimedBy == nil || *t.ClaimedBy != *filter.ClaimedBy) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(t.Question), strings.ToLower(strings.TrimSpace(*filter.SearchTerm))) {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	limit, offset := filter.page()
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateQuestion(_ context.Context, id int64, question string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	t.Question = question
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id int64, status domain.TicketStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return false, nil
	}
	t.Status = status
	if status == domain.TicketStatusClosed {
		now := s.now()
		t.ClosedAt = &now
	} else {
		t.ClosedAt = nil
	}
	return true, nil
}

func (s *MemoryStore) SetClaimant(_ context.Context, id int64, actorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok || t.ClaimedBy != nil {
		return false, nil
	}
	t.ClaimedBy = &actorID
	return true, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *domain.TicketMessage) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[msg.TicketID]; !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": msg.TicketID})
	}
	s.nextMsg++
	msg.ID = s.nextMsg
	msg.CreatedAt = s.now()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TicketMessage
	for _, m := range s.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetDestMessageTS(_ context.Context, originTS string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.OriginTS == originTS && m.DestTS != nil {
			return *m.DestTS, nil
		}
	}
	return "", apperrors.NewNotFound("message", map[string]any{"origin_ts": originTS})
}

func (s *MemoryStore) UpdateMessageBody(_ context.Context, ts, body string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		m := &s.messages[i]
		if m.OriginTS == ts || (m.DestTS != nil && *m.DestTS == ts) {
			m.Body = body
			return m.TicketID, nil
		}
	}
	return 0, apperrors.NewNotFound("message", map[string]any{"ts": ts})
}

func (s *MemoryStore) ListActiveStaff(_ context.Context) ([]domain.StaffMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StaffMember
	for _, m := range s.staff {
		if m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlackID < out[j].SlackID })
	return out, nil
}

func (s *MemoryStore) UpsertStaff(_ context.Context, member *domain.StaffMember) error {
	if strings.TrimSpace(member.SlackID) == "" {
		return apperrors.NewValidationError("slack id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.staff[member.SlackID]; ok {
		member.CreatedAt = prev.CreatedAt
	} else {
		member.CreatedAt = s.now()
	}
	s.staff[member.SlackID] = *member
	return nil
}

// Remove deletes a ticket behind the relay's back. Tests use it to simulate
// rows vanishing underneath a cache.
func (s *MemoryStore) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, id)
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}
