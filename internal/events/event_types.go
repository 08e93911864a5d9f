package events

import (
	"time"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketClaimed       EventType = "ticket_claimed"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventTicketMessageEdited EventType = "ticket_message_edited"
)

// TicketEventTypes lists every event that changes what the dashboard shows.
var TicketEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketClaimed,
	EventTicketMessageAdded,
	EventTicketMessageEdited,
}

// Actor identifies who caused an event.
type Actor struct {
	Type   domain.SubjectType `json:"type"`
	UserID string             `json:"user_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	RequesterID string `json:"requester_id"`
	Question    string `json:"question"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	ClaimedBy string `json:"claimed_by"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   int64  `json:"message_id"`
	IsStaff     bool   `json:"is_staff"`
	BodyPreview string `json:"body_preview"`
	Attachments int    `json:"attachments"`
}

// TicketMessageEditedPayload payload.
type TicketMessageEditedPayload struct {
	MessageTS   string `json:"message_ts"`
	BodyPreview string `json:"body_preview"`
}
