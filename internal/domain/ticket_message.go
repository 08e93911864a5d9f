package domain

import "time"

// TicketMessage is one relayed message in a ticket's transcript.
type TicketMessage struct {
	ID           int64
	TicketID     int64
	SenderID     string
	SenderName   string
	SenderAvatar string
	Body         string
	Attachments  []Attachment
	IsStaff      bool
	// OriginTS is the timestamp of the message in the channel it was written in.
	OriginTS string
	// DestTS is the timestamp of the mirrored copy, nil when delivery produced no post.
	DestTS    *string
	CreatedAt time.Time
}

// Attachment records metadata of a file relayed with a message.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	Size     int64  `json:"size"`
}

// Speaker labels the message author for transcripts.
func (m TicketMessage) Speaker() string {
	if m.IsStaff {
		return "Staff"
	}
	return "User"
}
