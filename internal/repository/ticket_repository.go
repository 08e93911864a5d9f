package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

// TicketFilter captures dashboard search parameters.
type TicketFilter struct {
	RequesterID *string
	ClaimedBy   *string
	Statuses    []domain.TicketStatus
	SearchTerm  *string
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByThread(ctx context.Context, threadTS string) (*domain.Ticket, error)
	SetStatus(ctx context.Context, id int64, status domain.TicketStatus) (bool, error)
	SetClaimant(ctx context.Context, id int64, actorID string) (bool, error)
	UpdateQuestion(ctx context.Context, id int64, question string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, requester_id, requester_name, requester_avatar, question,
               user_thread_ts, staff_thread_ts, status, claimed_by, created_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (requester_id, requester_name, requester_avatar, question, user_thread_ts, staff_thread_ts, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.RequesterID,
		ticket.RequesterName,
		ticket.RequesterAvatar,
		ticket.Question,
		ticket.UserThreadTS,
		ticket.StaffThreadTS,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// GetByThread matches the root timestamp of either mirrored thread.
func (r *ticketRepository) GetByThread(ctx context.Context, threadTS string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_thread_ts=$1 OR staff_thread_ts=$1 LIMIT 1`
	return r.fetchSingle(ctx, query, threadTS)
}

// SetStatus writes the status and the close time together.
func (r *ticketRepository) SetStatus(ctx context.Context, id int64, status domain.TicketStatus) (bool, error) {
	const query = `
        UPDATE tickets
        SET status=$1::text,
            closed_at=CASE WHEN $1::text = 'closed' THEN NOW() ELSE NULL END
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, string(status), id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// SetClaimant only succeeds for an unclaimed ticket, so concurrent claims have one winner.
func (r *ticketRepository) SetClaimant(ctx context.Context, id int64, actorID string) (bool, error) {
	const query = `UPDATE tickets SET claimed_by=$1 WHERE id=$2 AND claimed_by IS NULL`
	cmd, err := r.pool.Exec(ctx, query, actorID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) UpdateQuestion(ctx context.Context, id int64, question string) error {
	const query = `UPDATE tickets SET question=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, question, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.ClaimedBy != nil {
		args = append(args, *filter.ClaimedBy)
		clauses = append(clauses, fmt.Sprintf("claimed_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		clauses = append(clauses, fmt.Sprintf("LOWER(question) LIKE $%d", len(args)))
	}

	limit, offset := filter.page()
	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (f TicketFilter) page() (int, int) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var status string
		if err := rows.Scan(
			&ticket.ID,
			&ticket.RequesterID,
			&ticket.RequesterName,
			&ticket.RequesterAvatar,
			&ticket.Question,
			&ticket.UserThreadTS,
			&ticket.StaffThreadTS,
			&status,
			&ticket.ClaimedBy,
			&ticket.CreatedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		ticket.Status = domain.TicketStatus(status)
		result = append(result, ticket)
	}
	return result, rows.Err()
}
