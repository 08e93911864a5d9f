package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is one support request mirrored between the user channel and the staff channel.
type Ticket struct {
	ID              int64
	RequesterID     string
	RequesterName   string
	RequesterAvatar string
	Question        string
	UserThreadTS    string
	StaffThreadTS   string
	Status          TicketStatus
	ClaimedBy       *string
	CreatedAt       time.Time
	ClosedAt        *time.Time
}

func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// HasThread reports whether ts is the root of either mirrored thread.
func (t *Ticket) HasThread(ts string) bool {
	return ts != "" && (t.UserThreadTS == ts || t.StaffThreadTS == ts)
}

// Clone returns a deep copy so cached tickets are never shared.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	if t.ClaimedBy != nil {
		v := *t.ClaimedBy
		c.ClaimedBy = &v
	}
	if t.ClosedAt != nil {
		v := *t.ClosedAt
		c.ClosedAt = &v
	}
	return &c
}

// TicketLabel renders the human-facing ticket reference, e.g. "tk-7".
func TicketLabel(prefix string, id int64) string {
	return fmt.Sprintf("%s-%d", prefix, id)
}
