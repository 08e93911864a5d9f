// Package ai talks to a language model on behalf of staff: ticket summaries,
// ticket type detection and reply paraphrasing.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

// Tag is the detected category of a ticket.
type Tag string

const (
	TagFraud   Tag = "fraud"
	TagFTHelp  Tag = "fthelp"
	TagFAQ     Tag = "faq"
	TagQueue   Tag = "queue"
	TagOther   Tag = "other"
	TagUnknown Tag = "unknown"
)

var knownTags = []Tag{TagFraud, TagFTHelp, TagFAQ, TagQueue, TagOther}

// ParseTag maps model output to a known tag, or TagUnknown.
func ParseTag(raw string) Tag {
	for _, t := range knownTags {
		if string(t) == raw {
			return t
		}
	}
	return TagUnknown
}

// Summary statuses.
const (
	StatusResolved     = "resolved"
	StatusPendingUser  = "pending_user"
	StatusPendingStaff = "pending_staff"
	StatusUnclear      = "unclear"
)

// Summary is the model's view of where a ticket stands.
type Summary struct {
	Status          string
	Summary         string
	SuggestedAction string
}

// Collaborator is the relay's AI surface.
type Collaborator interface {
	Summarize(ctx context.Context, ticketID int64) (*Summary, error)
	Classify(ctx context.Context, ticketID int64) (Tag, error)
	Paraphrase(ctx context.Context, ticketID int64, draft string) (string, error)
}

// TranscriptSource loads what the model needs to see.
type TranscriptSource interface {
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	ListMessages(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error)
}

// ErrDisabled is returned by every call when no model is configured.
var ErrDisabled = errors.New("ai collaborator is not configured")

// MalformedResponseError reports model output that could not be used.
type MalformedResponseError struct {
	Op     string
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed model response: %s", e.Op, e.Reason)
}

// Disabled is a Collaborator that always fails with ErrDisabled.
type Disabled struct{}

func (Disabled) Summarize(context.Context, int64) (*Summary, error) { return nil, ErrDisabled }
func (Disabled) Classify(context.Context, int64) (Tag, error)       { return TagUnknown, ErrDisabled }
func (Disabled) Paraphrase(context.Context, int64, string) (string, error) {
	return "", ErrDisabled
}
