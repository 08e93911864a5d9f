package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

// TicketMessageRepository manages relayed thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error)
	GetDestTS(ctx context.Context, originTS string) (string, error)
	UpdateBody(ctx context.Context, ts, body string) (int64, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	attachments, err := encodeAttachments(msg.Attachments)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_msgs (ticket_id, sender_id, sender_name, sender_avatar, body, attachments, is_staff, origin_ts, dest_ts)
        VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderID,
		msg.SenderName,
		msg.SenderAvatar,
		msg.Body,
		attachments,
		msg.IsStaff,
		msg.OriginTS,
		msg.DestTS,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, sender_id, sender_name, sender_avatar, COALESCE(body, ''), attachments,
               is_staff, origin_ts, dest_ts, created_at
        FROM ticket_msgs WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		var attachments []byte
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.SenderAvatar,
			&msg.Body,
			&attachments,
			&msg.IsStaff,
			&msg.OriginTS,
			&msg.DestTS,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(attachments) > 0 {
			if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
				return nil, fmt.Errorf("decode attachments of message %d: %w", msg.ID, err)
			}
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *ticketMessageRepository) GetDestTS(ctx context.Context, originTS string) (string, error) {
	const query = `SELECT dest_ts FROM ticket_msgs WHERE origin_ts=$1 AND dest_ts IS NOT NULL ORDER BY id DESC LIMIT 1`
	var dest string
	if err := r.pool.QueryRow(ctx, query, originTS).Scan(&dest); err != nil {
		return "", err
	}
	return dest, nil
}

// UpdateBody rewrites the body of the message whose origin or destination is ts
// and returns the owning ticket id.
func (r *ticketMessageRepository) UpdateBody(ctx context.Context, ts, body string) (int64, error) {
	const query = `
        UPDATE ticket_msgs SET body=NULLIF($1,'')
        WHERE origin_ts=$2 OR dest_ts=$2
        RETURNING ticket_id`
	var ticketID int64
	if err := r.pool.QueryRow(ctx, query, body, ts).Scan(&ticketID); err != nil {
		return 0, err
	}
	return ticketID, nil
}

func encodeAttachments(list []domain.Attachment) ([]byte, error) {
	if len(list) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	return raw, nil
}
