package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/ai"
	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/observability"
	"github.com/relaydesk/ticket-relay/internal/platform"
)

// postSummary asks the model where the ticket stands and posts the answer in
// the staff thread. actorID, when set, is told privately about failures.
func (s *RelayService) postSummary(ctx context.Context, ticket *domain.Ticket, actorID string) {
	summary, err := s.ai.Summarize(ctx, ticket.ID)
	if err != nil {
		s.aiFailed(ctx, "summarize", ticket, actorID, err)
		return
	}
	if _, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:  s.cfg.StaffChannelID,
		ThreadTS: ticket.StaffThreadTS,
		Text:     "AI Ticket Summary",
		Blocks:   summaryBlocks(summary),
	}); err != nil {
		s.logger.Warn("summary post failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
}

// suggestParaphrase shows the author a polished version of their draft with
// a button that sends it.
func (s *RelayService) suggestParaphrase(ctx context.Context, ticket *domain.Ticket, actorID, draft string) {
	if draft == "" {
		s.notifyStaff(ctx, ticket, actorID, textParaphraseUsage)
		return
	}
	paraphrased, err := s.ai.Paraphrase(ctx, ticket.ID, draft)
	if err != nil {
		s.aiFailed(ctx, "paraphrase", ticket, actorID, err)
		return
	}
	s.notifyStaff(ctx, ticket, actorID, "AI Suggestion: "+paraphrased, paraphraseBlocks(ticket.ID, paraphrased)...)
}

// Detect classifies a new ticket and, when the category has a canned reply,
// offers staff a one-click reply and resolve.
func (s *RelayService) Detect(ctx context.Context, ticketID int64) {
	tag, err := s.ai.Classify(ctx, ticketID)
	if err != nil {
		if !errors.Is(err, ai.ErrDisabled) {
			s.metrics.Inc(observability.CounterAIFailures)
			s.logger.Warn("ticket classification failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
		}
		return
	}
	reply, ok := s.cfg.Macros.Lookup(string(tag))
	if !ok {
		s.logger.Debug("no macro for detected tag", zap.Int64("ticket_id", ticketID), zap.String("tag", string(tag)))
		return
	}
	ticket, ok := s.loadTicket(ctx, ticketID)
	if !ok {
		return
	}
	if _, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:  s.cfg.StaffChannelID,
		ThreadTS: ticket.StaffThreadTS,
		Text:     "AI Ticket Type Detection",
		Blocks:   detectionBlocks(ticket.ID, tag, reply),
	}); err != nil {
		s.logger.Warn("detection post failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *RelayService) aiFailed(ctx context.Context, op string, ticket *domain.Ticket, actorID string, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Int64("ticket_id", ticket.ID), zap.Error(err)}
	var malformed *ai.MalformedResponseError
	if errors.As(err, &malformed) {
		fields = append(fields, zap.String("raw", stringPreview(malformed.Raw, 500)))
	}
	if !errors.Is(err, ai.ErrDisabled) {
		s.metrics.Inc(observability.CounterAIFailures)
		s.logger.Warn("ai request failed", fields...)
	}
	if actorID != "" {
		s.notifyStaff(ctx, ticket, actorID, textAIUnavailable)
	}
}

// sendParaphrased delivers an accepted AI suggestion to the requester and
// keeps a copy in the staff thread.
func (s *RelayService) sendParaphrased(ctx context.Context, ev platform.ActionEvent) {
	var ref paraphraseRef
	if !s.decodeValue(ev, &ref) {
		return
	}
	ticket, ok := s.loadTicket(ctx, ref.TicketID)
	if !ok {
		return
	}
	if ticket.IsClosed() {
		s.notifyStaff(ctx, ticket, ev.UserID, textClosedForStaff)
		return
	}
	staff := s.profile(ctx, ev.UserID)
	dest, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:  s.cfg.UserChannelID,
		ThreadTS: ticket.UserThreadTS,
		Text:     ref.Paraphrased,
		Username: s.staffSender(staff),
		IconURL:  staff.AvatarURL,
	})
	if err != nil {
		s.logger.Error("paraphrased delivery failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		s.notifyStaff(ctx, ticket, ev.UserID, textSomethingWrong)
		return
	}
	origin, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:  s.cfg.StaffChannelID,
		ThreadTS: ticket.StaffThreadTS,
		Text:     ref.Paraphrased,
		Username: staff.DisplayName + " | AI Paraphrased",
		IconURL:  staff.AvatarURL,
	})
	if err != nil {
		s.logger.Warn("paraphrased staff copy failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		origin = dest
	}
	s.appendMessage(ctx, &domain.TicketMessage{
		TicketID:     ticket.ID,
		SenderID:     ev.UserID,
		SenderName:   staff.DisplayName,
		SenderAvatar: staff.AvatarURL,
		Body:         ref.Paraphrased,
		IsStaff:      true,
		OriginTS:     origin,
		DestTS:       &dest,
	}, staffActor(ev.UserID))
}

// resolveDetected sends the canned reply for a detected category and
// resolves the ticket in one go.
func (s *RelayService) resolveDetected(ctx context.Context, ev platform.ActionEvent) {
	var ref detectedRef
	if !s.decodeValue(ev, &ref) {
		return
	}
	ticket, ok := s.loadTicket(ctx, ref.TicketID)
	if !ok {
		return
	}
	if !ticket.IsOpen() {
		s.notifyStaff(ctx, ticket, ev.UserID, textAlreadyClosed)
		return
	}
	if !s.isStaff(ctx, ev.UserID) {
		s.metrics.Inc(observability.CounterUnauthorizedActs)
		s.notifyStaff(ctx, ticket, ev.UserID, textNoPermission)
		return
	}
	reply, ok := s.cfg.Macros.Lookup(ref.Tag)
	if !ok {
		s.logger.Warn("detected tag has no macro", zap.String("tag", ref.Tag))
		s.notifyStaff(ctx, ticket, ev.UserID, textSomethingWrong)
		return
	}

	staff := s.profile(ctx, ev.UserID)
	if !s.markClosed(ctx, ticket, ev.UserID, s.cfg.StaffChannelID) {
		return
	}
	dest, err := s.platform.PostMessage(ctx, platform.Message{
		Channel:  s.cfg.UserChannelID,
		ThreadTS: ticket.UserThreadTS,
		Text:     reply,
		Username: s.staffSender(staff),
		IconURL:  staff.AvatarURL,
	})
	if err != nil {
		s.logger.Error("detected reply delivery failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		s.undoClose(ctx, ticket)
		s.notifyStaff(ctx, ticket, ev.UserID, textSomethingWrong)
		return
	}
	s.appendMessage(ctx, &domain.TicketMessage{
		TicketID:     ticket.ID,
		SenderID:     ev.UserID,
		SenderName:   staff.DisplayName,
		SenderAvatar: staff.AvatarURL,
		Body:         reply,
		IsStaff:      true,
		OriginTS:     dest,
		DestTS:       &dest,
	}, staffActor(ev.UserID))

	s.announceClosed(ctx, ticket, ev.UserID, closeOptions{claim: true, summarize: true})
}
