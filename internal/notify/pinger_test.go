package notify

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/config"
)

func startServer(t *testing.T, handler fiber.Handler) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/ws/notify", handler)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String() + "/ws/notify"
}

func TestPingDeliversTicketID(t *testing.T) {
	received := make(chan pingBody, 1)
	url := startServer(t, func(c *fiber.Ctx) error {
		var body pingBody
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		assert.Equal(t, "secret", c.Get("X-API-Key"))
		received <- body
		return c.SendStatus(fiber.StatusNoContent)
	})

	p := NewPinger(config.NotifyConfig{URL: url, APIKey: "secret", Timeout: time.Second}, zap.NewNop())
	adv := p.Ping(context.Background(), 42)
	require.True(t, adv.Succeeded(), adv.String())

	select {
	case body := <-received:
		assert.Equal(t, int64(42), body.TicketID)
	case <-time.After(time.Second):
		t.Fatal("ping not received")
	}
}

func TestPingReportsServerError(t *testing.T) {
	url := startServer(t, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusBadGateway)
	})

	adv := NewPinger(config.NotifyConfig{URL: url, Timeout: time.Second}, zap.NewNop()).Ping(context.Background(), 1)
	assert.False(t, adv.Succeeded())
}

func TestPingUnreachableIsAdvisoryFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	p := NewPinger(config.NotifyConfig{URL: "http://" + addr + "/ws/notify", Timeout: 200 * time.Millisecond}, zap.NewNop())
	start := time.Now()
	adv := p.Ping(context.Background(), 1)

	assert.False(t, adv.Succeeded())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPingWithoutURLIsNoop(t *testing.T) {
	adv := NewPinger(config.NotifyConfig{}, zap.NewNop()).Ping(context.Background(), 1)
	assert.True(t, adv.Succeeded())
}
