package service

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/observability"
	"github.com/relaydesk/ticket-relay/internal/platform"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// CommandKind is what a staff-thread message asks the relay to do.
type CommandKind int

const (
	CommandNote CommandKind = iota
	CommandForward
	CommandMacro
	CommandSummarize
	CommandParaphrase
	CommandReopen
	CommandResolve
)

func (k CommandKind) String() string {
	switch k {
	case CommandForward:
		return "forward"
	case CommandMacro:
		return "macro"
	case CommandSummarize:
		return "summarize"
	case CommandParaphrase:
		return "paraphrase"
	case CommandReopen:
		return "reopen"
	case CommandResolve:
		return "resolve"
	default:
		return "note"
	}
}

// Command is a classified staff message. Arg is the text after the marker,
// or the macro tag for CommandMacro.
type Command struct {
	Kind CommandKind
	Arg  string
}

type commandRule struct {
	kind  CommandKind
	match func(text string, macros domain.Macros) (string, bool)
}

// commandRules is evaluated top to bottom; the first match wins.
var commandRules = []commandRule{
	{CommandForward, matchForward},
	{CommandMacro, matchMacro},
	{CommandSummarize, matchWord("!tldr", "!summarize")},
	{CommandParaphrase, matchWord("!ai")},
	{CommandReopen, matchWord("!reopen")},
	{CommandResolve, matchWord("!resolve", ".resolve")},
}

// ClassifyStaffText decides what a staff message means. Anything unmarked is
// an internal note.
func ClassifyStaffText(text string, macros domain.Macros) Command {
	trimmed := strings.TrimSpace(text)
	for _, rule := range commandRules {
		if arg, ok := rule.match(trimmed, macros); ok {
			return Command{Kind: rule.kind, Arg: arg}
		}
	}
	return Command{Kind: CommandNote, Arg: trimmed}
}

func matchForward(text string, _ domain.Macros) (string, bool) {
	rest, ok := strings.CutPrefix(text, "?")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func matchMacro(text string, macros domain.Macros) (string, bool) {
	rest, ok := strings.CutPrefix(text, "!")
	if !ok || strings.IndexFunc(rest, unicode.IsSpace) >= 0 {
		return "", false
	}
	tag := strings.ToLower(rest)
	if _, ok := macros.Lookup(tag); !ok {
		return "", false
	}
	return tag, true
}

// matchWord matches text that starts with one of words as a whole word.
func matchWord(words ...string) func(string, domain.Macros) (string, bool) {
	return func(text string, _ domain.Macros) (string, bool) {
		for _, w := range words {
			if len(text) < len(w) || !strings.EqualFold(text[:len(w)], w) {
				continue
			}
			rest := text[len(w):]
			if rest == "" {
				return "", true
			}
			if r := []rune(rest)[0]; unicode.IsSpace(r) {
				return strings.TrimSpace(rest), true
			}
		}
		return "", false
	}
}

// HandleStaffReply runs a message posted inside a ticket's staff thread.
func (s *RelayService) HandleStaffReply(ctx context.Context, ev platform.MessageEvent) {
	if !ev.IsThreadReply() {
		return
	}
	if strings.TrimSpace(ev.Text) == "" && len(ev.Files) == 0 {
		return
	}
	ticket, err := s.store.FindTicket(ctx, ev.ThreadTS)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Error("ticket lookup failed", zap.String("thread_ts", ev.ThreadTS), zap.Error(err))
		}
		return
	}

	cmd := ClassifyStaffText(ev.Text, s.cfg.Macros)
	s.logger.Debug("staff command",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("kind", cmd.Kind.String()),
		zap.String("user_id", ev.User))

	switch cmd.Kind {
	case CommandForward:
		s.forwardToUser(ctx, ev, ticket, cmd.Arg)
	case CommandMacro:
		s.replyWithMacro(ctx, ev, ticket, cmd.Arg)
	case CommandSummarize:
		s.postSummary(ctx, ticket, ev.User)
	case CommandParaphrase:
		s.suggestParaphrase(ctx, ticket, ev.User, cmd.Arg)
	case CommandReopen:
		s.Reopen(ctx, ticket, ev.User)
	case CommandResolve:
		s.ResolveByCommand(ctx, ticket, ev.User)
	default:
		s.recordNote(ctx, ev, ticket)
	}
}

// forwardToUser delivers a `?` message to the requester.
func (s *RelayService) forwardToUser(ctx context.Context, ev platform.MessageEvent, ticket *domain.Ticket, text string) {
	if ticket.IsClosed() {
		s.notifyStaff(ctx, ticket, ev.User, textClosedForStaff)
		return
	}
	if text == "" && len(ev.Files) == 0 {
		return
	}
	staff := s.profile(ctx, ev.User)

	var dest string
	if text != "" {
		ts, err := s.platform.PostMessage(ctx, platform.Message{
			Channel:  s.cfg.UserChannelID,
			ThreadTS: ticket.UserThreadTS,
			Text:     text,
			Username: s.staffSender(staff),
			IconURL:  staff.AvatarURL,
		})
		if err != nil {
			s.logger.Error("forward to user failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			s.notifyStaff(ctx, ticket, ev.User, textSomethingWrong)
			return
		}
		dest = ts
	}

	var uploaded []string
	for _, f := range s.SendFiles(ctx, ev.Files, s.cfg.UserChannelID, ticket.UserThreadTS) {
		if f.DestTS != "" {
			uploaded = append(uploaded, f.DestTS)
		}
	}
	if dest == "" && len(uploaded) > 0 {
		dest = uploaded[0]
	}

	s.appendMessage(ctx, &domain.TicketMessage{
		TicketID:     ticket.ID,
		SenderID:     ev.User,
		SenderName:   staff.DisplayName,
		SenderAvatar: staff.AvatarURL,
		Body:         strings.TrimSpace(ev.Text),
		Attachments:  attachmentsOf(ev.Files),
		IsStaff:      true,
		OriginTS:     ev.TS,
		DestTS:       optional(dest),
	}, staffActor(ev.User))

	if text != "" {
		s.notifyStaff(ctx, ticket, ev.User, textMessageSent, sentBlocks(dest)...)
	}
	if len(uploaded) > 0 {
		s.notifyStaff(ctx, ticket, ev.User, textAttachmentsSent, attachmentsSentBlocks(uploaded)...)
	}
}

// replyWithMacro sends a canned reply and resolves the ticket. The close is
// stored before delivery and undone if the reply cannot be posted.
func (s *RelayService) replyWithMacro(ctx context.Context, ev platform.MessageEvent, ticket *domain.Ticket, tag string) {
	if ticket.IsClosed() {
		s.notifyStaff(ctx, ticket, ev.User, textClosedForStaff)
		return
	}
	body, _ := s.cfg.Macros.Lookup(tag)
	staff := s.profile(ctx, ev.User)

	if !s.markClosed(ctx, ticket, ev.User, s.cfg.StaffChannelID) {
		return
	}

	dest, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:  s.cfg.UserChannelID,
		ThreadTS: ticket.UserThreadTS,
		Text:     body,
		Username: s.staffSender(staff),
		IconURL:  staff.AvatarURL,
	})
	if err != nil {
		s.logger.Error("macro delivery failed", zap.Int64("ticket_id", ticket.ID), zap.String("tag", tag), zap.Error(err))
		s.undoClose(ctx, ticket)
		s.notifyStaff(ctx, ticket, ev.User, textSomethingWrong)
		return
	}
	s.appendMessage(ctx, &domain.TicketMessage{
		TicketID:     ticket.ID,
		SenderID:     ev.User,
		SenderName:   staff.DisplayName,
		SenderAvatar: staff.AvatarURL,
		Body:         body,
		IsStaff:      true,
		OriginTS:     ev.TS,
		DestTS:       &dest,
	}, staffActor(ev.User))
	s.notifyStaff(ctx, ticket, ev.User, textMessageSent, sentBlocks(dest)...)

	s.announceClosed(ctx, ticket, ev.User, closeOptions{})
}

// undoClose reopens a ticket whose closing reply never reached the user.
func (s *RelayService) undoClose(ctx context.Context, ticket *domain.Ticket) {
	if _, err := s.store.SetStatus(ctx, ticket.ID, domain.TicketStatusOpen); err != nil {
		s.logger.Error("undo close failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err), observability.Urgent())
	}
}

// recordNote stores an unmarked staff message. Notes never reach the user.
func (s *RelayService) recordNote(ctx context.Context, ev platform.MessageEvent, ticket *domain.Ticket) {
	staff := s.profile(ctx, ev.User)
	s.appendMessage(ctx, &domain.TicketMessage{
		TicketID:     ticket.ID,
		SenderID:     ev.User,
		SenderName:   staff.DisplayName,
		SenderAvatar: staff.AvatarURL,
		Body:         strings.TrimSpace(ev.Text),
		Attachments:  attachmentsOf(ev.Files),
		IsStaff:      true,
		OriginTS:     ev.TS,
	}, staffActor(ev.User))
}
