// Package platform is the relay's view of the chat workspace. The relay core
// depends only on these types; adapters translate them to a concrete API.
package platform

import (
	"context"
	"io"
)

// Platform is the outbound surface of the chat workspace.
type Platform interface {
	// PostMessage publishes msg and returns its timestamp.
	PostMessage(ctx context.Context, msg Message) (string, error)
	// PostEphemeral shows msg to a single user only.
	PostEphemeral(ctx context.Context, msg Ephemeral) error
	AddReaction(ctx context.Context, channel, ts, name string) error
	RemoveReaction(ctx context.Context, channel, ts, name string) error
	UpdateMessage(ctx context.Context, channel, ts string, msg Message) error
	DeleteMessage(ctx context.Context, channel, ts string) error
	UserProfile(ctx context.Context, userID string) (Profile, error)
	Permalink(ctx context.Context, channel, ts string) (string, error)
	DownloadFile(ctx context.Context, url string, w io.Writer) error
	UploadFile(ctx context.Context, upload Upload) (UploadResult, error)
	// FileShareTS returns the timestamp of the post that shared fileID in
	// channel, or "" when the share is not visible yet.
	FileShareTS(ctx context.Context, fileID, channel string) (string, error)
	OpenModal(ctx context.Context, triggerID string, modal Modal) error
}

// Handler consumes inbound workspace events. Implementations must not panic
// back into the listener and must not return errors to it.
type Handler interface {
	HandleMessage(ctx context.Context, ev MessageEvent)
	HandleAction(ctx context.Context, ev ActionEvent)
	HandleViewSubmission(ctx context.Context, ev ViewSubmission)
}

// Profile is the public identity of a workspace user.
type Profile struct {
	UserID      string
	DisplayName string
	AvatarURL   string
}

// Upload describes a local file to post into a thread.
type Upload struct {
	Channel  string
	ThreadTS string
	Path     string
	Filename string
	Size     int64
}

// UploadResult identifies an uploaded file.
type UploadResult struct {
	FileID string
}

// Message is an outbound post. Text is always set and doubles as the
// notification fallback when Blocks are present.
type Message struct {
	Channel       string
	ThreadTS      string
	Text          string
	Username      string
	IconURL       string
	Blocks        []Block
	DisableUnfurl bool
}

// Ephemeral is a message visible only to UserID.
type Ephemeral struct {
	Channel  string
	ThreadTS string
	UserID   string
	Text     string
	Blocks   []Block
}

// Modal is a single-input dialog.
type Modal struct {
	CallbackID      string
	PrivateMetadata string
	Title           string
	SubmitLabel     string
	InputBlockID    string
	InputActionID   string
	InputLabel      string
	InitialValue    string
	Multiline       bool
}
