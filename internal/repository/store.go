package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/ticket-relay/internal/domain"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// TicketStore is everything the relay needs from durable storage.
// Absent rows surface as NOT_FOUND domain errors.
type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	// FindTicket resolves a ticket from the root timestamp of either thread.
	FindTicket(ctx context.Context, threadTS string) (*domain.Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateQuestion(ctx context.Context, id int64, question string) error
	// SetStatus reports false when no ticket with id exists.
	SetStatus(ctx context.Context, id int64, status domain.TicketStatus) (bool, error)
	// SetClaimant reports false when the ticket is already claimed or absent.
	SetClaimant(ctx context.Context, id int64, actorID string) (bool, error)

	AppendMessage(ctx context.Context, msg *domain.TicketMessage) error
	ListMessages(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error)
	GetDestMessageTS(ctx context.Context, originTS string) (string, error)
	// UpdateMessageBody edits the message whose origin or mirror is ts and returns its ticket id.
	UpdateMessageBody(ctx context.Context, ts, body string) (int64, error)

	ListActiveStaff(ctx context.Context) ([]domain.StaffMember, error)
	UpsertStaff(ctx context.Context, member *domain.StaffMember) error
}

type ticketStore struct {
	tickets  TicketRepository
	messages TicketMessageRepository
	staff    StaffRepository
}

// NewTicketStore composes the postgres repositories into a TicketStore.
func NewTicketStore(pool *pgxpool.Pool) TicketStore {
	return &ticketStore{
		tickets:  NewTicketRepository(pool),
		messages: NewTicketMessageRepository(pool),
		staff:    NewStaffRepository(pool),
	}
}

func (s *ticketStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := validateTicket(ticket); err != nil {
		return err
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (s *ticketStore) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

func (s *ticketStore) FindTicket(ctx context.Context, threadTS string) (*domain.Ticket, error) {
	if threadTS == "" {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	ticket, err := s.tickets.GetByThread(ctx, threadTS)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"thread_ts": threadTS})
	}
	return ticket, nil
}

func (s *ticketStore) ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

func (s *ticketStore) UpdateQuestion(ctx context.Context, id int64, question string) error {
	return notFoundOr(s.tickets.UpdateQuestion(ctx, id, question), "ticket", map[string]any{"id": id})
}

func (s *ticketStore) SetStatus(ctx context.Context, id int64, status domain.TicketStatus) (bool, error) {
	if status != domain.TicketStatusOpen && status != domain.TicketStatusClosed {
		return false, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": status})
	}
	return s.tickets.SetStatus(ctx, id, status)
}

func (s *ticketStore) SetClaimant(ctx context.Context, id int64, actorID string) (bool, error) {
	if actorID == "" {
		return false, apperrors.NewValidationError("claimant is required", nil)
	}
	return s.tickets.SetClaimant(ctx, id, actorID)
}

func (s *ticketStore) AppendMessage(ctx context.Context, msg *domain.TicketMessage) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *ticketStore) ListMessages(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	return s.messages.ListByTicket(ctx, ticketID)
}

func (s *ticketStore) GetDestMessageTS(ctx context.Context, originTS string) (string, error) {
	ts, err := s.messages.GetDestTS(ctx, originTS)
	if err != nil {
		return "", notFoundOr(err, "message", map[string]any{"origin_ts": originTS})
	}
	return ts, nil
}

func (s *ticketStore) UpdateMessageBody(ctx context.Context, ts, body string) (int64, error) {
	id, err := s.messages.UpdateBody(ctx, ts, body)
	if err != nil {
		return 0, notFoundOr(err, "message", map[string]any{"ts": ts})
	}
	return id, nil
}

func (s *ticketStore) ListActiveStaff(ctx context.Context) ([]domain.StaffMember, error) {
	return s.staff.ListActive(ctx)
}

func (s *ticketStore) UpsertStaff(ctx context.Context, member *domain.StaffMember) error {
	if strings.TrimSpace(member.SlackID) == "" {
		return apperrors.NewValidationError("slack id is required", nil)
	}
	if _, ok := domain.ParseStaffRole(string(member.Role)); !ok {
		return apperrors.NewValidationError("unknown staff role", map[string]any{"role": member.Role})
	}
	return s.staff.Upsert(ctx, member)
}

func validateTicket(t *domain.Ticket) error {
	missing := []string{}
	if t.RequesterID == "" {
		missing = append(missing, "requester_id")
	}
	if t.UserThreadTS == "" {
		missing = append(missing, "user_thread_ts")
	}
	if t.StaffThreadTS == "" {
		missing = append(missing, "staff_thread_ts")
	}
	if t.Question == "" {
		missing = append(missing, "question")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("ticket is missing required fields", map[string]any{"fields": missing})
	}
	return nil
}

func validateMessage(m *domain.TicketMessage) error {
	missing := []string{}
	if m.TicketID == 0 {
		missing = append(missing, "ticket_id")
	}
	if m.SenderID == "" {
		missing = append(missing, "sender_id")
	}
	if m.OriginTS == "" {
		missing = append(missing, "origin_ts")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("message is missing required fields", map[string]any{"fields": missing})
	}
	return nil
}

func notFoundOr(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, details)
	}
	return err
}
