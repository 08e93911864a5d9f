package service

import (
	"context"
	"strings"

	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/repository"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// StaffService manages who the relay treats as staff.
type StaffService struct {
	store repository.TicketStore
}

// StaffUpsertInput describes a staff membership change.
type StaffUpsertInput struct {
	SlackID string
	Name    string
	Role    string
	Active  bool
}

// NewStaffService constructs the service.
func NewStaffService(store repository.TicketStore) *StaffService {
	return &StaffService{store: store}
}

// ListActive returns every active staff member.
func (s *StaffService) ListActive(ctx context.Context) ([]domain.StaffMember, error) {
	members, err := s.store.ListActiveStaff(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// Upsert creates or updates a staff member. Deactivating a member removes
// their staff rights without deleting them.
func (s *StaffService) Upsert(ctx context.Context, input StaffUpsertInput) (*domain.StaffMember, error) {
	slackID := strings.TrimSpace(input.SlackID)
	if slackID == "" {
		return nil, apperrors.NewValidationError("slack id is required", nil)
	}
	role, ok := domain.ParseStaffRole(strings.ToUpper(strings.TrimSpace(input.Role)))
	if !ok {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	member := &domain.StaffMember{
		SlackID: slackID,
		Name:    strings.TrimSpace(input.Name),
		Role:    role,
		Active:  input.Active,
	}
	if err := s.store.UpsertStaff(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}
