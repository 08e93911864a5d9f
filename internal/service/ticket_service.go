package service

import (
	"context"
	"strings"

	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/repository"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// TicketService is the read side used by the dashboard after a ping.
type TicketService struct {
	store repository.TicketStore
}

// TicketListFilter describes dashboard listing filters.
type TicketListFilter struct {
	RequesterID string
	ClaimedBy   string
	Statuses    []domain.TicketStatus
	SearchTerm  string
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(store repository.TicketStore) *TicketService {
	return &TicketService{store: store}
}

// GetTicket returns the authoritative ticket and its transcript.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, []domain.TicketMessage, error) {
	if id <= 0 {
		return nil, nil, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": id})
	}
	ticket, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	messages, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, messages, nil
}

// ListTickets searches tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, st := range filter.Statuses {
		if st != domain.TicketStatusOpen && st != domain.TicketStatusClosed {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": st})
		}
	}
	repoFilter := repository.TicketFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if v := strings.TrimSpace(filter.RequesterID); v != "" {
		repoFilter.RequesterID = &v
	}
	if v := strings.TrimSpace(filter.ClaimedBy); v != "" {
		repoFilter.ClaimedBy = &v
	}
	if v := strings.TrimSpace(filter.SearchTerm); v != "" {
		repoFilter.SearchTerm = &v
	}
	tickets, err := s.store.ListTickets(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}
