package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Upsert(ctx context.Context, staff *domain.StaffMember) error
	ListActive(ctx context.Context) ([]domain.StaffMember, error)
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

func (r *staffRepository) Upsert(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO users (slack_id, name, role, is_active)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (slack_id) DO UPDATE SET name=EXCLUDED.name, role=EXCLUDED.role, is_active=EXCLUDED.is_active
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		staff.SlackID,
		staff.Name,
		string(staff.Role),
		staff.Active,
	).Scan(&staff.CreatedAt)
}

func (r *staffRepository) ListActive(ctx context.Context) ([]domain.StaffMember, error) {
	const query = `
        SELECT slack_id, name, role, is_active, created_at
        FROM users WHERE is_active = TRUE ORDER BY slack_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		var member domain.StaffMember
		var role string
		if err := rows.Scan(&member.SlackID, &member.Name, &role, &member.Active, &member.CreatedAt); err != nil {
			return nil, err
		}
		member.Role = domain.StaffRole(role)
		result = append(result, member)
	}
	return result, rows.Err()
}
