package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/observability"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

type chanPinger struct {
	pings chan int64
	err   error
}

func (p *chanPinger) Ping(_ context.Context, id int64) apperrors.Advisory {
	p.pings <- id
	return apperrors.Advisory{Op: "ping", Err: p.err}
}

func TestNotificationServicePingsOnTicketEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := events.NewInMemoryDispatcher()
	pinger := &chanPinger{pings: make(chan int64, 4), err: errors.New("dashboard down")}
	metrics := observability.NewMetrics()
	n := NewNotificationService(dispatcher, pinger, zap.NewNop(), metrics, 4)
	n.RegisterHandlers()
	go n.Run(ctx, 1)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketMessageAdded, TicketID: 9}))

	select {
	case id := <-pinger.pings:
		assert.Equal(t, int64(9), id)
	case <-time.After(time.Second):
		t.Fatal("no ping sent")
	}
	assert.Eventually(t, func() bool {
		return metrics.Count(observability.CounterPingsFailed) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotificationServiceDropsWhenQueueFull(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	n := NewNotificationService(dispatcher, &chanPinger{pings: make(chan int64, 1)}, zap.NewNop(), metrics, 1)
	n.RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: 1}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: 2}))

	assert.Equal(t, int64(1), metrics.Count(observability.CounterPingsFailed))
}
