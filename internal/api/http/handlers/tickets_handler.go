package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/ticket-relay/internal/api/dto"
	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/service"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// TicketsHandler serves the dashboard's ticket reads.
type TicketsHandler struct {
	service *service.TicketService
	prefix  string
}

// NewTicketsHandler constructs handler. prefix renders ticket labels.
func NewTicketsHandler(ticketService *service.TicketService, prefix string) *TicketsHandler {
	return &TicketsHandler{service: ticketService, prefix: prefix}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id. The id may be numeric or a label such as "tk-7".
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, ok := h.parseTicketID(c.Params("id"))
	if !ok {
		return apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	ticket, msgs, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketDetail(ticket, msgs)})
}

func (h *TicketsHandler) parseTicketID(raw string) (int64, bool) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), h.prefix+"-")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		RequesterID: c.Query("requester"),
		ClaimedBy:   c.Query("claimed_by"),
		SearchTerm:  c.Query("search"),
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToLower(strings.TrimSpace(part))))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (h *TicketsHandler) ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.ID,
		Label:         domain.TicketLabel(h.prefix, ticket.ID),
		RequesterID:   ticket.RequesterID,
		RequesterName: ticket.RequesterName,
		Question:      ticket.Question,
		Status:        ticket.Status,
		ClaimedBy:     ticket.ClaimedBy,
		CreatedAt:     ticket.CreatedAt,
		ClosedAt:      ticket.ClosedAt,
	}
}

func (h *TicketsHandler) ticketDetail(ticket *domain.Ticket, messages []domain.TicketMessage) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, ticketMessageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary:   h.ticketSummary(ticket),
		RequesterAvatar: ticket.RequesterAvatar,
		UserThreadTS:    ticket.UserThreadTS,
		StaffThreadTS:   ticket.StaffThreadTS,
		Messages:        msgs,
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			Name:     att.Name,
			URL:      att.URL,
			MimeType: att.MimeType,
			Size:     att.Size,
		})
	}
	return dto.TicketMessageResponse{
		ID:           msg.ID,
		SenderID:     msg.SenderID,
		SenderName:   msg.SenderName,
		SenderAvatar: msg.SenderAvatar,
		Body:         msg.Body,
		IsStaff:      msg.IsStaff,
		Delivered:    msg.DestTS != nil,
		Attachments:  attachments,
		CreatedAt:    msg.CreatedAt,
	}
}
