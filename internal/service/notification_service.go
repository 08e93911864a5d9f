package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/observability"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

// Pinger announces a changed ticket to the dashboard.
type Pinger interface {
	Ping(ctx context.Context, ticketID int64) apperrors.Advisory
}

// NotificationService turns ticket events into dashboard pings. Publishing
// never waits on the network: pings are queued and sent by background workers,
// and a full queue drops the ping.
type NotificationService struct {
	dispatcher events.Dispatcher
	pinger     Pinger
	logger     *zap.Logger
	metrics    *observability.Metrics
	queue      chan int64
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, pinger Pinger, logger *zap.Logger, metrics *observability.Metrics, queueSize int) *NotificationService {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &NotificationService{
		dispatcher: dispatcher,
		pinger:     pinger,
		logger:     logger.With(zap.String("component", "notifications")),
		metrics:    metrics,
		queue:      make(chan int64, queueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, t := range events.TicketEventTypes {
		n.dispatcher.Subscribe(t, n.handleTicketChanged)
	}
}

// Run sends queued pings until ctx is cancelled.
func (n *NotificationService) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 2
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-n.queue:
					n.ping(ctx, id)
				}
			}
		}()
	}
	wg.Wait()
}

func (n *NotificationService) handleTicketChanged(_ context.Context, event events.Event) error {
	n.logger.Debug("ticket changed",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID))
	select {
	case n.queue <- event.TicketID:
	default:
		n.metrics.Inc(observability.CounterPingsFailed)
		n.logger.Warn("ping queue full, dropping ping", zap.Int64("ticket_id", event.TicketID))
	}
	return nil
}

func (n *NotificationService) ping(ctx context.Context, ticketID int64) {
	adv := n.pinger.Ping(ctx, ticketID)
	if !adv.Succeeded() {
		n.metrics.Inc(observability.CounterPingsFailed)
		n.logger.Warn("dashboard ping failed", zap.Int64("ticket_id", ticketID), zap.Error(adv.Err))
	}
}
