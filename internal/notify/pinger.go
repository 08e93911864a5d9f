// Package notify tells the dashboard that a ticket changed so it can refetch.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/config"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

const pingOp = "notify.ping"

// Pinger posts {"ticketId": id} to the dashboard refresh endpoint. A ping is
// best effort: one attempt, short timeout, failures only reported.
type Pinger struct {
	url     string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPinger builds a Pinger. An empty URL makes every ping a no-op success.
func NewPinger(cfg config.NotifyConfig, logger *zap.Logger) *Pinger {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &Pinger{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "pinger")),
	}
}

type pingBody struct {
	TicketID int64 `json:"ticketId"`
}

// Ping never blocks longer than the configured timeout.
func (p *Pinger) Ping(ctx context.Context, ticketID int64) apperrors.Advisory {
	if p.url == "" {
		return apperrors.Advisory{Op: pingOp}
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Advisory{Op: pingOp, Err: err}
	}

	agent := fiber.Post(p.url)
	agent.JSON(pingBody{TicketID: ticketID})
	agent.Timeout(p.timeout)
	if p.apiKey != "" {
		agent.Set("X-API-Key", p.apiKey)
	}

	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return apperrors.Advisory{Op: pingOp, Err: errs[0]}
	}
	if status < 200 || status >= 300 {
		return apperrors.Advisory{Op: pingOp, Err: fmt.Errorf("unexpected status %d", status)}
	}
	return apperrors.Advisory{Op: pingOp}
}
