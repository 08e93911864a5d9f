package dto

import (
	"time"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	ID            int64               `json:"id"`
	Label         string              `json:"label"`
	RequesterID   string              `json:"requester_id"`
	RequesterName string              `json:"requester_name"`
	Question      string              `json:"question"`
	Status        domain.TicketStatus `json:"status"`
	ClaimedBy     *string             `json:"claimed_by"`
	CreatedAt     time.Time           `json:"created_at"`
	ClosedAt      *time.Time          `json:"closed_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	RequesterAvatar string                  `json:"requester_avatar"`
	UserThreadTS    string                  `json:"user_thread_ts"`
	StaffThreadTS   string                  `json:"staff_thread_ts"`
	Messages        []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents one transcript entry.
type TicketMessageResponse struct {
	ID           int64                `json:"id"`
	SenderID     string               `json:"sender_id"`
	SenderName   string               `json:"sender_name"`
	SenderAvatar string               `json:"sender_avatar"`
	Body         string               `json:"body"`
	IsStaff      bool                 `json:"is_staff"`
	Delivered    bool                 `json:"delivered"`
	Attachments  []AttachmentResponse `json:"attachments"`
	CreatedAt    time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}
