package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/observability"
	"github.com/relaydesk/ticket-relay/internal/platform"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// RelayedFile is the outcome of relaying one attachment. DestTS is empty when
// the upload failed or its post never became visible.
type RelayedFile struct {
	Name   string
	DestTS string
	Err    error
}

// CreateTicket opens a ticket for a top-level message in the user channel.
func (s *RelayService) CreateTicket(ctx context.Context, ev platform.MessageEvent) {
	text := strings.TrimSpace(ev.Text)
	if text == "" && len(ev.Files) == 0 {
		return
	}
	requester := s.profile(ctx, ev.User)

	link, err := s.platform.Permalink(ctx, s.cfg.UserChannelID, ev.TS)
	if err != nil {
		s.logger.Warn("user permalink lookup failed", zap.String("ts", ev.TS), zap.Error(err))
	}

	question := text
	if question == "" {
		question = attachmentQuestion
	}
	staffRoot, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:  s.cfg.StaffChannelID,
		Text:     question,
		Username: requester.DisplayName,
		IconURL:  requester.AvatarURL,
		Blocks:   rootBlocks(question, ev.User, link),
	})
	if err != nil {
		s.logger.Error("staff root post failed", zap.String("user_id", ev.User), zap.Error(err))
		s.notify(ctx, s.cfg.UserChannelID, ev.TS, ev.User, textCreateFailed)
		return
	}

	s.SendFiles(ctx, ev.Files, s.cfg.StaffChannelID, staffRoot)

	ticket := &domain.Ticket{
		RequesterID:     ev.User,
		RequesterName:   requester.DisplayName,
		RequesterAvatar: requester.AvatarURL,
		Question:        question,
		UserThreadTS:    ev.TS,
		StaffThreadTS:   staffRoot,
		Status:          domain.TicketStatusOpen,
	}
	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		s.logger.Error("persist ticket failed",
			zap.String("user_thread_ts", ev.TS),
			zap.String("staff_thread_ts", staffRoot),
			zap.Error(err))
		s.notify(ctx, s.cfg.UserChannelID, ev.TS, ev.User, textCreateFailed)
		return
	}
	s.metrics.Inc(observability.CounterTicketsCreated)

	staffLink, err := s.platform.Permalink(ctx, s.cfg.StaffChannelID, staffRoot)
	if err != nil {
		s.logger.Warn("staff permalink lookup failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}

	if _, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:  s.cfg.StaffChannelID,
		ThreadTS: staffRoot,
		Text:     textNewTicket,
		Blocks:   s.newTicketBlocks(ticket.ID, ev.User),
	}); err != nil {
		s.logger.Warn("new ticket post failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	if _, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:       s.cfg.UserChannelID,
		ThreadTS:      ev.TS,
		Text:          s.textReceived(),
		Blocks:        s.receivedBlocks(ticket.ID, staffLink),
		DisableUnfurl: true,
	}); err != nil {
		s.logger.Warn("ticket confirmation failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}

	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.String("requester_id", ev.User))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    requesterActor(ev.User),
		Payload: events.TicketCreatedPayload{
			RequesterID: ev.User,
			Question:    stringPreview(question, 140),
		},
	})

	id := ticket.ID
	s.background(ctx, func(ctx context.Context) { s.Detect(ctx, id) })
}

// HandleClientReply relays a thread reply from the user channel. It reports
// false when the message belongs to no ticket and should open a new one.
func (s *RelayService) HandleClientReply(ctx context.Context, ev platform.MessageEvent) bool {
	if !ev.IsThreadReply() {
		return false
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" && len(ev.Files) == 0 {
		return true
	}

	ticket, err := s.store.FindTicket(ctx, ev.ThreadTS)
	if apperrors.IsNotFound(err) {
		return false
	}
	if err != nil {
		// A store outage must not turn every reply into a fresh ticket.
		s.logger.Error("ticket lookup failed, dropping reply", zap.String("thread_ts", ev.ThreadTS), zap.Error(err))
		return true
	}

	if ticket.IsClosed() {
		s.notify(ctx, s.cfg.UserChannelID, ticket.UserThreadTS, ev.User, s.textClosedForUser())
		return true
	}

	sender := s.profile(ctx, ev.User)
	var dest string
	if text != "" {
		dest, err = s.platform.PostMessage(ctx, platform.Message{
			Channel:  s.cfg.StaffChannelID,
			ThreadTS: ticket.StaffThreadTS,
			Text:     text,
			Username: sender.DisplayName,
			IconURL:  sender.AvatarURL,
		})
		if err != nil {
			s.logger.Error("relay to staff thread failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	for _, f := range s.SendFiles(ctx, ev.Files, s.cfg.StaffChannelID, ticket.StaffThreadTS) {
		if dest == "" && f.DestTS != "" {
			dest = f.DestTS
		}
	}

	msg := &domain.TicketMessage{
		TicketID:     ticket.ID,
		SenderID:     ev.User,
		SenderName:   sender.DisplayName,
		SenderAvatar: sender.AvatarURL,
		Body:         text,
		Attachments:  attachmentsOf(ev.Files),
		IsStaff:      false,
		OriginTS:     ev.TS,
		DestTS:       optional(dest),
	}
	s.appendMessage(ctx, msg, requesterActor(ev.User))
	return true
}

// EditMessage carries an edit in the user channel over to the staff copy.
func (s *RelayService) EditMessage(ctx context.Context, ev platform.MessageEvent) {
	edited := ev.Edited
	if edited == nil || edited.TS == "" {
		return
	}
	text := strings.TrimSpace(edited.Text)
	if text == "" {
		return
	}

	if edited.ThreadTS == "" || edited.ThreadTS == edited.TS {
		s.editRoot(ctx, edited.TS, edited.User, text)
		return
	}

	dest, err := s.store.GetDestMessageTS(ctx, edited.TS)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Error("mirrored message lookup failed", zap.String("ts", edited.TS), zap.Error(err))
		}
		return
	}
	if err := s.platform.UpdateMessage(ctx, s.cfg.StaffChannelID, dest, platform.Message{Text: text}); err != nil {
		s.logger.Warn("update mirrored message failed", zap.String("dest_ts", dest), zap.Error(err))
		return
	}
	ticketID, err := s.store.UpdateMessageBody(ctx, edited.TS, text)
	if err != nil {
		s.logger.Error("persist edited message failed", zap.String("ts", edited.TS), zap.Error(err))
		return
	}
	s.publishEdited(ctx, ticketID, edited.User, edited.TS, text)
}

// editRoot refreshes the structured staff root post of the ticket rooted at ts.
func (s *RelayService) editRoot(ctx context.Context, ts, userID, text string) {
	ticket, err := s.store.FindTicket(ctx, ts)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Error("ticket lookup for edit failed", zap.String("ts", ts), zap.Error(err))
		}
		return
	}
	if ticket.UserThreadTS != ts {
		return
	}
	link, err := s.platform.Permalink(ctx, s.cfg.UserChannelID, ts)
	if err != nil {
		s.logger.Warn("user permalink lookup failed", zap.String("ts", ts), zap.Error(err))
	}
	err = s.platform.UpdateMessage(ctx, s.cfg.StaffChannelID, ticket.StaffThreadTS, platform.Message{
		Text:   text,
		Blocks: rootBlocks(text, ticket.RequesterID, link),
	})
	if err != nil {
		s.logger.Warn("update staff root failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	if err := s.store.UpdateQuestion(ctx, ticket.ID, text); err != nil {
		s.logger.Error("persist edited question failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	s.publishEdited(ctx, ticket.ID, userID, ts, text)
}

func (s *RelayService) publishEdited(ctx context.Context, ticketID int64, userID, ts, text string) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageEdited,
		TicketID: ticketID,
		Actor:    requesterActor(userID),
		Payload: events.TicketMessageEditedPayload{
			MessageTS:   ts,
			BodyPreview: stringPreview(text, 140),
		},
	})
}

// SendFiles copies files into a thread of channel one at a time. A failed file
// is logged and skipped; the rest of the batch still goes through. Each file
// gets its own transfer deadline.
func (s *RelayService) SendFiles(ctx context.Context, files []platform.FileRef, channel, threadTS string) []RelayedFile {
	if len(files) == 0 {
		return nil
	}
	out := make([]RelayedFile, 0, len(files))
	for _, f := range files {
		res := RelayedFile{Name: fileName(f)}
		res.DestTS, res.Err = s.relayFile(ctx, f, channel, threadTS)
		if res.Err != nil {
			s.metrics.Inc(observability.CounterFilesFailed)
			s.logger.Warn("file relay failed", zap.String("file", res.Name), zap.String("channel", channel), zap.Error(res.Err))
		} else {
			s.metrics.Inc(observability.CounterFilesRelayed)
		}
		out = append(out, res)
	}
	return out
}

func (s *RelayService) relayFile(ctx context.Context, f platform.FileRef, channel, threadTS string) (string, error) {
	if f.URL == "" {
		return "", errors.New("file has no download url")
	}
	name := fileName(f)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FileTimeout)
	defer cancel()

	tmp, err := os.CreateTemp("", "relay-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if err := s.platform.DownloadFile(ctx, f.URL, tmp); err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("flush %s: %w", name, err)
	}

	up, err := s.platform.UploadFile(ctx, platform.Upload{
		Channel:  channel,
		ThreadTS: threadTS,
		Path:     tmp.Name(),
		Filename: name,
		Size:     info.Size(),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return s.awaitShare(ctx, up.FileID, channel), nil
}

// awaitShare polls until the uploaded file shows up as a post in channel.
func (s *RelayService) awaitShare(ctx context.Context, fileID, channel string) string {
	if fileID == "" {
		return ""
	}
	for attempt := 0; attempt < s.cfg.FilePollAttempts; attempt++ {
		if s.cfg.FilePollDelay > 0 {
			timer := time.NewTimer(s.cfg.FilePollDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ""
			case <-timer.C:
			}
		}
		ts, err := s.platform.FileShareTS(ctx, fileID, channel)
		if err != nil {
			s.logger.Debug("file share lookup failed", zap.String("file_id", fileID), zap.Error(err))
			continue
		}
		if ts != "" {
			return ts
		}
	}
	return ""
}

// appendMessage persists msg and announces it.
func (s *RelayService) appendMessage(ctx context.Context, msg *domain.TicketMessage, actor events.Actor) bool {
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		s.logger.Error("persist message failed",
			zap.Int64("ticket_id", msg.TicketID),
			zap.String("origin_ts", msg.OriginTS),
			zap.Error(err))
		return false
	}
	s.metrics.Inc(observability.CounterMessagesRelayed)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: msg.TicketID,
		Actor:    actor,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			IsStaff:     msg.IsStaff,
			BodyPreview: stringPreview(msg.Body, 140),
			Attachments: len(msg.Attachments),
		},
	})
	return true
}

func attachmentsOf(files []platform.FileRef) []domain.Attachment {
	if len(files) == 0 {
		return nil
	}
	out := make([]domain.Attachment, 0, len(files))
	for _, f := range files {
		out = append(out, domain.Attachment{
			Name:     fileName(f),
			URL:      f.URL,
			MimeType: f.MimeType,
			Size:     f.Size,
		})
	}
	return out
}

func fileName(f platform.FileRef) string {
	if f.Name == "" {
		return "file"
	}
	return f.Name
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
