package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/observability"
	"github.com/relaydesk/ticket-relay/internal/platform"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

type closeOptions struct {
	// claim makes the closing actor the claimant if nobody is yet.
	claim bool
	// summarize posts an AI summary to the staff thread afterwards.
	summarize bool
	// noticeChannel receives the failure notice. Defaults to the staff channel.
	noticeChannel string
}

// ResolveByCommand resolves a ticket from a staff-thread command. Only staff
// holding a closing role may do so.
func (s *RelayService) ResolveByCommand(ctx context.Context, ticket *domain.Ticket, actorID string) {
	if !s.canClose(ctx, actorID) {
		s.metrics.Inc(observability.CounterUnauthorizedActs)
		s.notifyStaff(ctx, ticket, actorID, textNoPermission)
		return
	}
	if ticket.IsClosed() {
		s.notifyStaff(ctx, ticket, actorID, textAlreadyClosed)
		return
	}
	s.closeTicket(ctx, ticket, actorID, closeOptions{})
}

// ResolveByAction resolves a ticket from a Resolve button in either thread.
// Staff resolving someone else's ticket also claim it. A requester who is not
// staff may close their own ticket; staff may not close their own.
func (s *RelayService) ResolveByAction(ctx context.Context, ticketID int64, actorID, channel string) {
	ticket, ok := s.loadTicket(ctx, ticketID)
	if !ok {
		return
	}
	notice := func(text string) {
		s.notify(ctx, channel, s.threadIn(ticket, channel), actorID, text)
	}
	if ticket.IsClosed() {
		notice(textAlreadyClosed)
		return
	}

	isRequester := actorID == ticket.RequesterID
	isStaff := s.isStaff(ctx, actorID)
	switch {
	case isStaff && isRequester:
		s.metrics.Inc(observability.CounterUnauthorizedActs)
		notice(textOwnTicket)
	case isStaff:
		if !s.canClose(ctx, actorID) {
			s.metrics.Inc(observability.CounterUnauthorizedActs)
			notice(textNoPermission)
			return
		}
		s.closeTicket(ctx, ticket, actorID, closeOptions{claim: true, summarize: true, noticeChannel: channel})
	case isRequester:
		if !s.closeTicket(ctx, ticket, actorID, closeOptions{summarize: true, noticeChannel: channel}) {
			return
		}
		if _, err := s.platform.PostMessage(ctx, platform.Message{
			Channel:  s.cfg.StaffChannelID,
			ThreadTS: ticket.StaffThreadTS,
			Text:     textSelfClosedClaim,
			Blocks:   []platform.Block{platform.Section{Text: textSelfClosedClaim, Accessory: claimButton(ticket.ID)}},
		}); err != nil {
			s.logger.Warn("claim prompt failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	default:
		s.metrics.Inc(observability.CounterUnauthorizedActs)
		notice(textNotYourTicket)
	}
}

// closeTicket moves an open ticket to closed and tells both threads. It
// reports false, after notifying the actor, when the store refused the change.
func (s *RelayService) closeTicket(ctx context.Context, ticket *domain.Ticket, actorID string, opts closeOptions) bool {
	noticeChannel := opts.noticeChannel
	if noticeChannel == "" {
		noticeChannel = s.cfg.StaffChannelID
	}
	if !s.markClosed(ctx, ticket, actorID, noticeChannel) {
		return false
	}
	s.announceClosed(ctx, ticket, actorID, opts)
	return true
}

// markClosed writes the closed status and tells actorID when that fails.
func (s *RelayService) markClosed(ctx context.Context, ticket *domain.Ticket, actorID, noticeChannel string) bool {
	ok, err := s.store.SetStatus(ctx, ticket.ID, domain.TicketStatusClosed)
	if err != nil || !ok {
		s.logger.Error("close ticket failed", zap.Int64("ticket_id", ticket.ID), zap.Bool("found", ok), zap.Error(err))
		s.notify(ctx, noticeChannel, s.threadIn(ticket, noticeChannel), actorID, textSomethingWrong)
		return false
	}
	return true
}

// announceClosed runs the side effects of a close that is already stored.
func (s *RelayService) announceClosed(ctx context.Context, ticket *domain.Ticket, actorID string, opts closeOptions) {
	s.metrics.Inc(observability.CounterTicketsResolved)
	s.logger.Info("ticket resolved", zap.Int64("ticket_id", ticket.ID), zap.String("actor_id", actorID))

	if opts.claim {
		s.claimSilently(ctx, ticket, actorID)
	}
	s.markResolved(ctx, ticket, true)

	s.post(ctx, s.cfg.StaffChannelID, ticket.StaffThreadTS, textResolvedStaff(actorID))
	s.post(ctx, s.cfg.UserChannelID, ticket.UserThreadTS, s.textResolvedUser())

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    s.actorFor(ticket, actorID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusOpen,
			NewStatus: domain.TicketStatusClosed,
		},
	})

	if opts.summarize {
		s.background(ctx, func(ctx context.Context) { s.postSummary(ctx, ticket, "") })
	}
}

// Reopen moves a closed ticket back to open.
func (s *RelayService) Reopen(ctx context.Context, ticket *domain.Ticket, actorID string) {
	if ticket.IsOpen() {
		s.notifyStaff(ctx, ticket, actorID, textAlreadyOpen)
		return
	}
	ok, err := s.store.SetStatus(ctx, ticket.ID, domain.TicketStatusOpen)
	if err != nil || !ok {
		s.logger.Error("reopen ticket failed", zap.Int64("ticket_id", ticket.ID), zap.Bool("found", ok), zap.Error(err))
		s.notifyStaff(ctx, ticket, actorID, textSomethingWrong)
		return
	}
	s.metrics.Inc(observability.CounterTicketsReopened)
	s.logger.Info("ticket reopened", zap.Int64("ticket_id", ticket.ID), zap.String("actor_id", actorID))

	s.markResolved(ctx, ticket, false)
	s.post(ctx, s.cfg.StaffChannelID, ticket.StaffThreadTS, textReopenedStaff(actorID))
	s.post(ctx, s.cfg.UserChannelID, ticket.UserThreadTS, s.textReopenedUser(actorID))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    staffActor(actorID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusClosed,
			NewStatus: domain.TicketStatusOpen,
		},
	})
}

// Claim records actorID as the staff member handling the ticket. Only the
// first claim wins; later claimants are told who got there first.
func (s *RelayService) Claim(ctx context.Context, ticketID int64, actorID string) {
	ticket, ok := s.loadTicket(ctx, ticketID)
	if !ok {
		return
	}
	if !s.isStaff(ctx, actorID) {
		s.metrics.Inc(observability.CounterUnauthorizedActs)
		s.notifyStaff(ctx, ticket, actorID, textNoPermission)
		return
	}
	won, err := s.store.SetClaimant(ctx, ticket.ID, actorID)
	if err != nil {
		s.logger.Error("claim ticket failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		s.notifyStaff(ctx, ticket, actorID, textSomethingWrong)
		return
	}
	if !won {
		claimant := "someone else"
		if current, ok := s.loadTicket(ctx, ticket.ID); ok && current.ClaimedBy != nil {
			claimant = *current.ClaimedBy
		}
		s.notifyStaff(ctx, ticket, actorID, textAlreadyClaimed(claimant))
		return
	}
	s.post(ctx, s.cfg.StaffChannelID, ticket.StaffThreadTS, textClaimed(actorID))
	s.afterClaim(ctx, ticket.ID, actorID)
}

// claimSilently claims for actorID without telling anyone; an existing
// claimant is kept.
func (s *RelayService) claimSilently(ctx context.Context, ticket *domain.Ticket, actorID string) {
	won, err := s.store.SetClaimant(ctx, ticket.ID, actorID)
	if err != nil {
		s.logger.Warn("claim on close failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	if won {
		s.afterClaim(ctx, ticket.ID, actorID)
	}
}

func (s *RelayService) afterClaim(ctx context.Context, ticketID int64, actorID string) {
	s.metrics.Inc(observability.CounterTicketsClaimed)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticketID,
		Actor:    staffActor(actorID),
		Payload:  events.TicketClaimedPayload{ClaimedBy: actorID},
	})
}

// markResolved adds or removes the resolved reaction on both thread roots.
func (s *RelayService) markResolved(ctx context.Context, ticket *domain.Ticket, resolved bool) {
	name := s.cfg.ResolvedReaction
	if name == "" {
		return
	}
	react := s.platform.AddReaction
	op := "add_reaction"
	if !resolved {
		react = s.platform.RemoveReaction
		op = "remove_reaction"
	}
	for _, target := range []struct{ channel, ts string }{
		{s.cfg.StaffChannelID, ticket.StaffThreadTS},
		{s.cfg.UserChannelID, ticket.UserThreadTS},
	} {
		adv := apperrors.Attempt(op, func() error { return react(ctx, target.channel, target.ts, name) })
		s.advisory(adv, zap.Int64("ticket_id", ticket.ID), zap.String("channel", target.channel))
	}
}

// post publishes a plain bot message into a thread and only logs failure.
func (s *RelayService) post(ctx context.Context, channel, threadTS, text string) {
	if _, err := s.platform.PostMessage(ctx, platform.Message{Channel: channel, ThreadTS: threadTS, Text: text}); err != nil {
		s.logger.Warn("thread notice failed", zap.String("channel", channel), zap.String("thread_ts", threadTS), zap.Error(err))
	}
}

// loadTicket fetches a ticket referenced by an interaction. A reference to a
// ticket the store does not know is an operator-visible anomaly.
func (s *RelayService) loadTicket(ctx context.Context, id int64) (*domain.Ticket, bool) {
	ticket, err := s.store.GetTicket(ctx, id)
	if err == nil {
		return ticket, true
	}
	if apperrors.IsNotFound(err) {
		s.metrics.Inc(observability.CounterStoreAnomalies)
		s.logger.Error("interaction references unknown ticket", zap.Int64("ticket_id", id), observability.Urgent())
		return nil, false
	}
	s.logger.Error("ticket lookup failed", zap.Int64("ticket_id", id), zap.Error(err))
	return nil, false
}

func (s *RelayService) actorFor(ticket *domain.Ticket, actorID string) events.Actor {
	if actorID == ticket.RequesterID {
		return requesterActor(actorID)
	}
	return staffActor(actorID)
}
