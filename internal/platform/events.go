package platform

// Message subtypes the relay accepts. Everything else is dropped.
const (
	SubtypeNone            = ""
	SubtypeFileShare       = "file_share"
	SubtypeMessageChanged  = "message_changed"
	SubtypeThreadBroadcast = "thread_broadcast"
)

// FileRef points at a file attached to an inbound message.
type FileRef struct {
	ID       string
	Name     string
	URL      string
	MimeType string
	Size     int64
}

// EditedMessage is the new state of a message carried by a change event.
type EditedMessage struct {
	TS       string
	ThreadTS string
	User     string
	Text     string
	BotID    string
}

// MessageEvent is an inbound channel message or message change.
type MessageEvent struct {
	ClientMsgID string
	EventTS     string
	Channel     string
	User        string
	Text        string
	TS          string
	ThreadTS    string
	SubType     string
	BotID       string
	Files       []FileRef
	Edited      *EditedMessage
}

// DedupKey identifies the event across redeliveries.
func (e MessageEvent) DedupKey() string {
	if e.ClientMsgID != "" {
		return e.ClientMsgID
	}
	if e.EventTS != "" {
		return e.EventTS
	}
	return e.TS
}

// AcceptedSubtype reports whether the relay handles messages of this subtype.
func (e MessageEvent) AcceptedSubtype() bool {
	switch e.SubType {
	case SubtypeNone, SubtypeFileShare, SubtypeMessageChanged, SubtypeThreadBroadcast:
		return true
	}
	return false
}

// FromBot reports whether the message was produced by an app.
func (e MessageEvent) FromBot() bool {
	if e.BotID != "" {
		return true
	}
	return e.Edited != nil && e.Edited.BotID != ""
}

// IsThreadReply reports whether the message sits inside a thread it did not start.
func (e MessageEvent) IsThreadReply() bool {
	return e.ThreadTS != "" && e.ThreadTS != e.TS
}

// ActionEvent is a button click.
type ActionEvent struct {
	ActionID  string
	Value     string
	UserID    string
	ChannelID string
	MessageTS string
	ThreadTS  string
	TriggerID string
}

// ViewSubmission is a submitted modal.
type ViewSubmission struct {
	CallbackID      string
	PrivateMetadata string
	UserID          string
	Values          map[string]string
}
