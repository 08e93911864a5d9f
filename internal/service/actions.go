package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/platform"
)

// HandleAction runs a button click.
func (s *RelayService) HandleAction(ctx context.Context, ev platform.ActionEvent) {
	defer s.recoverPanic("action", zap.String("action_id", ev.ActionID), zap.String("user_id", ev.UserID))
	s.logger.Debug("action received", zap.String("action_id", ev.ActionID), zap.String("user_id", ev.UserID))

	switch ev.ActionID {
	case ActionResolveTicket:
		if id, ok := s.ticketIDValue(ev); ok {
			s.ResolveByAction(ctx, id, ev.UserID, ev.ChannelID)
		}
	case ActionClaimTicket:
		if id, ok := s.ticketIDValue(ev); ok {
			s.Claim(ctx, id, ev.UserID)
		}
	case ActionSendParaphrased:
		s.sendParaphrased(ctx, ev)
	case ActionResolveDetected:
		s.resolveDetected(ctx, ev)
	case ActionDeleteMessage:
		s.deleteRelayed(ctx, ev)
	case ActionEditMessage:
		s.openEditor(ctx, ev)
	default:
		s.logger.Debug("unknown action ignored", zap.String("action_id", ev.ActionID))
	}
}

// HandleViewSubmission runs a submitted modal.
func (s *RelayService) HandleViewSubmission(ctx context.Context, ev platform.ViewSubmission) {
	defer s.recoverPanic("view_submission", zap.String("callback_id", ev.CallbackID), zap.String("user_id", ev.UserID))

	if ev.CallbackID != ViewEditedMessage {
		s.logger.Debug("unknown view ignored", zap.String("callback_id", ev.CallbackID))
		return
	}
	ts := ev.PrivateMetadata
	text := strings.TrimSpace(ev.Values[editInputAction])
	if ts == "" || text == "" {
		return
	}
	if err := s.platform.UpdateMessage(ctx, s.cfg.UserChannelID, ts, platform.Message{Text: text}); err != nil {
		s.logger.Warn("edit relayed message failed", zap.String("ts", ts), zap.Error(err))
		return
	}
	ticketID, err := s.store.UpdateMessageBody(ctx, ts, text)
	if err != nil {
		s.logger.Error("persist edited reply failed", zap.String("ts", ts), zap.Error(err))
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageEdited,
		TicketID: ticketID,
		Actor:    staffActor(ev.UserID),
		Payload: events.TicketMessageEditedPayload{
			MessageTS:   ts,
			BodyPreview: stringPreview(text, 140),
		},
	})
}

// deleteRelayed removes one or more relayed posts from the user channel.
func (s *RelayService) deleteRelayed(ctx context.Context, ev platform.ActionEvent) {
	var ref messageRef
	if !s.decodeValue(ev, &ref) || len(ref.TS) == 0 {
		return
	}
	deleted := 0
	for _, ts := range ref.TS {
		if err := s.platform.DeleteMessage(ctx, s.cfg.UserChannelID, ts); err != nil {
			s.logger.Warn("delete relayed message failed", zap.String("ts", ts), zap.Error(err))
			continue
		}
		deleted++
	}
	if deleted == 0 {
		s.notify(ctx, ev.ChannelID, ev.ThreadTS, ev.UserID, textSomethingWrong)
		return
	}
	text := textMessageDeleted
	if len(ref.TS) > 1 {
		text = textAttachmentsDeleted
	}
	s.notify(ctx, ev.ChannelID, ev.ThreadTS, ev.UserID, text)
}

func (s *RelayService) openEditor(ctx context.Context, ev platform.ActionEvent) {
	var ref editRef
	if !s.decodeValue(ev, &ref) || ref.TS == "" {
		return
	}
	if err := s.platform.OpenModal(ctx, ev.TriggerID, editModal(ref.TS)); err != nil {
		s.logger.Warn("open edit modal failed", zap.String("ts", ref.TS), zap.Error(err))
	}
}

func (s *RelayService) decodeValue(ev platform.ActionEvent, v any) bool {
	if err := json.Unmarshal([]byte(ev.Value), v); err != nil {
		s.logger.Warn("malformed action value", zap.String("action_id", ev.ActionID), zap.String("value", ev.Value), zap.Error(err))
		return false
	}
	return true
}

func (s *RelayService) ticketIDValue(ev platform.ActionEvent) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(ev.Value), 10, 64)
	if err != nil || id <= 0 {
		s.logger.Warn("malformed ticket id in action", zap.String("action_id", ev.ActionID), zap.String("value", ev.Value))
		return 0, false
	}
	return id, true
}
