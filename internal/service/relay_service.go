package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/ai"
	"github.com/relaydesk/ticket-relay/internal/config"
	"github.com/relaydesk/ticket-relay/internal/dedup"
	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/observability"
	"github.com/relaydesk/ticket-relay/internal/platform"
	"github.com/relaydesk/ticket-relay/internal/repository"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// RelayService mirrors tickets between the user channel and the staff
// channel and runs the ticket lifecycle. It implements platform.Handler.
type RelayService struct {
	store      repository.TicketStore
	platform   platform.Platform
	ai         ai.Collaborator
	dedup      dedup.Deduplicator
	dispatcher events.Dispatcher
	cfg        config.RelayConfig
	logger     *zap.Logger
	metrics    *observability.Metrics
	// async runs follow-up work that must not hold up the current event.
	async func(func())
}

// RelayDependencies bundles collaborators for the relay service.
type RelayDependencies struct {
	Store      repository.TicketStore
	Platform   platform.Platform
	AI         ai.Collaborator
	Dedup      dedup.Deduplicator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

var _ platform.Handler = (*RelayService)(nil)

// NewRelayService constructs the service.
func NewRelayService(cfg config.RelayConfig, deps RelayDependencies) *RelayService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collaborator := deps.AI
	if collaborator == nil {
		collaborator = ai.Disabled{}
	}
	gate := deps.Dedup
	if gate == nil {
		gate = dedup.NewMemory(0)
	}
	if cfg.Macros == nil {
		cfg.Macros = domain.DefaultMacros(cfg.TeamName)
	}
	if cfg.TicketPrefix == "" {
		cfg.TicketPrefix = "tk"
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = time.Minute
	}
	return &RelayService{
		store:      deps.Store,
		platform:   deps.Platform,
		ai:         collaborator,
		dedup:      gate,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "relay")),
		metrics:    deps.Metrics,
		async:      func(fn func()) { go fn() },
	}
}

// HandleMessage routes one inbound channel message.
func (s *RelayService) HandleMessage(ctx context.Context, ev platform.MessageEvent) {
	defer s.recoverPanic("message", zap.String("channel", ev.Channel), zap.String("ts", ev.TS))
	s.metrics.Inc(observability.CounterEventsReceived)

	if s.dedup.Seen(ctx, ev.DedupKey()) {
		s.metrics.Inc(observability.CounterEventsDuplicate)
		s.logger.Debug("duplicate event dropped", zap.String("key", ev.DedupKey()))
		return
	}
	if !ev.AcceptedSubtype() || ev.FromBot() {
		s.metrics.Inc(observability.CounterEventsDropped)
		return
	}

	switch ev.Channel {
	case s.cfg.UserChannelID:
		if ev.SubType == platform.SubtypeMessageChanged {
			s.EditMessage(ctx, ev)
			return
		}
		if !s.HandleClientReply(ctx, ev) {
			s.CreateTicket(ctx, ev)
		}
	case s.cfg.StaffChannelID:
		if ev.SubType == platform.SubtypeMessageChanged {
			return
		}
		s.HandleStaffReply(ctx, ev)
	default:
		s.metrics.Inc(observability.CounterEventsDropped)
	}
}

func (s *RelayService) recoverPanic(kind string, fields ...zap.Field) {
	if r := recover(); r != nil {
		s.metrics.Inc(observability.CounterHandlerPanics)
		fields = append(fields,
			zap.String("event_kind", kind),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()),
			observability.Urgent())
		s.logger.Error("relay handler panicked", fields...)
	}
}

// background detaches follow-up work from the event that triggered it.
func (s *RelayService) background(ctx context.Context, fn func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)
	s.async(func() {
		defer s.recoverPanic("background")
		fn(detached)
	})
}

func (s *RelayService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func staffActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, UserID: userID}
}

func requesterActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeRequester, UserID: userID}
}

// profile never fails: an unknown user is shown by id.
func (s *RelayService) profile(ctx context.Context, userID string) platform.Profile {
	p, err := s.platform.UserProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("user profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		return platform.Profile{UserID: userID, DisplayName: userID}
	}
	if p.DisplayName == "" {
		p.DisplayName = userID
	}
	return p
}

// staffSender is how a staff member appears in the user channel.
func (s *RelayService) staffSender(p platform.Profile) string {
	return fmt.Sprintf("%s | %s Team", p.DisplayName, s.cfg.TeamName)
}

func (s *RelayService) staffMember(ctx context.Context, userID string) (domain.StaffMember, bool) {
	members, err := s.store.ListActiveStaff(ctx)
	if err != nil {
		s.logger.Error("staff lookup failed, treating actor as non-staff", zap.String("user_id", userID), zap.Error(err))
		return domain.StaffMember{}, false
	}
	for _, m := range members {
		if m.SlackID == userID {
			return m, true
		}
	}
	return domain.StaffMember{}, false
}

func (s *RelayService) isStaff(ctx context.Context, userID string) bool {
	_, ok := s.staffMember(ctx, userID)
	return ok
}

// canClose reports whether userID holds one of the configured closing roles.
func (s *RelayService) canClose(ctx context.Context, userID string) bool {
	member, ok := s.staffMember(ctx, userID)
	if !ok {
		return false
	}
	if len(s.cfg.ClosingRoles) == 0 {
		return true
	}
	for _, role := range s.cfg.ClosingRoles {
		if member.Role == role {
			return true
		}
	}
	return false
}

// notify sends a private notice. Failing to notify is only logged.
func (s *RelayService) notify(ctx context.Context, channel, threadTS, userID, text string, blocks ...platform.Block) {
	err := s.platform.PostEphemeral(ctx, platform.Ephemeral{
		Channel:  channel,
		ThreadTS: threadTS,
		UserID:   userID,
		Text:     text,
		Blocks:   blocks,
	})
	if err != nil {
		s.logger.Warn("ephemeral notice failed", zap.String("channel", channel), zap.String("user_id", userID), zap.Error(err))
	}
}

// notifyStaff sends a private notice into the ticket's staff thread.
func (s *RelayService) notifyStaff(ctx context.Context, ticket *domain.Ticket, userID, text string, blocks ...platform.Block) {
	s.notify(ctx, s.cfg.StaffChannelID, ticket.StaffThreadTS, userID, text, blocks...)
}

// threadIn returns the ticket's thread root inside channel.
func (s *RelayService) threadIn(ticket *domain.Ticket, channel string) string {
	if channel == s.cfg.UserChannelID {
		return ticket.UserThreadTS
	}
	return ticket.StaffThreadTS
}

func (s *RelayService) advisory(adv apperrors.Advisory, fields ...zap.Field) {
	if adv.Succeeded() {
		return
	}
	s.logger.Warn("advisory operation failed", append(fields, zap.String("op", adv.Op), zap.Error(adv.Err))...)
}

func (s *RelayService) ticketLabel(id int64) string {
	return domain.TicketLabel(s.cfg.TicketPrefix, id)
}

func stringPreview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
