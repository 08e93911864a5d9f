package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/ticket-relay/internal/api/dto"
	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/service"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// StaffHandler exposes staff membership management.
type StaffHandler struct {
	staff *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staffService}
}

// ListStaff GET /api/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	members, err := h.staff.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		resp = append(resp, staffResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// UpsertStaff PUT /api/staff/:slackId.
func (h *StaffHandler) UpsertStaff(c *fiber.Ctx) error {
	var req dto.StaffUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	member, err := h.staff.Upsert(c.UserContext(), service.StaffUpsertInput{
		SlackID: c.Params("slackId"),
		Name:    req.Name,
		Role:    req.Role,
		Active:  active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(member)})
}

func staffResponse(member *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		SlackID:   member.SlackID,
		Name:      member.Name,
		Role:      string(member.Role),
		Active:    member.Active,
		CreatedAt: member.CreatedAt,
	}
}
