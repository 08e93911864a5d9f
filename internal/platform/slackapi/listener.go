package slackapi

import (
	"context"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/platform"
)

// Listener receives workspace events over Socket Mode and hands them to a
// platform.Handler one at a time.
type Listener struct {
	socketMode *socketmode.Client
	logger     *zap.Logger
}

// NewListener builds a Socket Mode listener on top of client.
func NewListener(client *Client, debug bool, logger *zap.Logger) *Listener {
	return &Listener{
		socketMode: socketmode.New(client.API(), socketmode.OptionDebug(debug)),
		logger:     logger.With(zap.String("component", "socketmode")),
	}
}

// Run blocks until ctx is cancelled or the connection fails for good.
func (l *Listener) Run(ctx context.Context, handler platform.Handler) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-l.socketMode.Events:
				if !ok {
					return
				}
				l.dispatch(ctx, evt, handler)
			}
		}
	}()
	return l.socketMode.RunContext(ctx)
}

func (l *Listener) dispatch(ctx context.Context, evt socketmode.Event, handler platform.Handler) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.logger.Info("connecting to socket mode")

	case socketmode.EventTypeConnected:
		l.logger.Info("connected to socket mode")

	case socketmode.EventTypeConnectionError:
		l.logger.Warn("socket mode connection error", zap.Any("data", evt.Data))

	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || evt.Request == nil {
			return
		}
		l.socketMode.Ack(*evt.Request)
		if eventsAPIEvent.Type != slackevents.CallbackEvent {
			return
		}
		msg, ok := eventsAPIEvent.InnerEvent.Data.(*slackevents.MessageEvent)
		if !ok || msg == nil {
			return
		}
		handler.HandleMessage(ctx, toMessageEvent(msg))

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok || evt.Request == nil {
			return
		}
		l.socketMode.Ack(*evt.Request)
		l.handleInteraction(ctx, callback, handler)
	}
}

func (l *Listener) handleInteraction(ctx context.Context, callback slack.InteractionCallback, handler platform.Handler) {
	switch callback.Type {
	case slack.InteractionTypeBlockActions:
		for _, action := range callback.ActionCallback.BlockActions {
			if action == nil {
				continue
			}
			handler.HandleAction(ctx, platform.ActionEvent{
				ActionID:  action.ActionID,
				Value:     action.Value,
				UserID:    callback.User.ID,
				ChannelID: callback.Channel.ID,
				MessageTS: callback.Message.Timestamp,
				ThreadTS:  callback.Message.ThreadTimestamp,
				TriggerID: callback.TriggerID,
			})
		}

	case slack.InteractionTypeViewSubmission:
		values := map[string]string{}
		if callback.View.State != nil {
			for _, block := range callback.View.State.Values {
				for actionID, action := range block {
					values[actionID] = action.Value
				}
			}
		}
		handler.HandleViewSubmission(ctx, platform.ViewSubmission{
			CallbackID:      callback.View.CallbackID,
			PrivateMetadata: callback.View.PrivateMetadata,
			UserID:          callback.User.ID,
			Values:          values,
		})

	default:
		l.logger.Debug("ignoring interaction", zap.String("type", string(callback.Type)))
	}
}
