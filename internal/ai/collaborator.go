package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/config"
)

type summaryResult struct {
	Summary string `json:"summary" jsonschema:"description=One or two sentences"`
	Status  string `json:"status" jsonschema:"enum=resolved,enum=pending_user,enum=pending_staff,enum=unclear"`
	Action  string `json:"action" jsonschema:"description=Next step or empty when resolved"`
}

type classifyResult struct {
	Detection string `json:"detection" jsonschema:"enum=fraud,enum=fthelp,enum=faq,enum=queue,enum=other"`
}

type paraphraseResult struct {
	Paraphrased string `json:"paraphrased"`
}

// Client implements Collaborator on top of a chat completion API.
type Client struct {
	llm         completer
	tickets     TranscriptSource
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

// NewClient builds an OpenAI-compatible collaborator. When cfg has no key it
// returns Disabled so callers can stay unconditional.
func NewClient(cfg config.AIConfig, tickets TranscriptSource, logger *zap.Logger) (Collaborator, error) {
	logger = logger.With(zap.String("component", "ai"))
	if !cfg.AIEnabled() {
		logger.Info("AI_API_KEY not provided; ai features disabled")
		return Disabled{}, nil
	}
	llm, err := newOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, logger)
	if err != nil {
		return nil, err
	}
	return newClient(llm, tickets, cfg, logger), nil
}

func newClient(llm completer, tickets TranscriptSource, cfg config.AIConfig, logger *zap.Logger) *Client {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		llm:         llm,
		tickets:     tickets,
		timeout:     timeout,
		maxAttempts: attempts,
		retryDelay:  cfg.RetryDelay,
		logger:      logger,
	}
}

func (c *Client) Summarize(ctx context.Context, ticketID int64) (*Summary, error) {
	prompt, err := c.transcript(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	var out summaryResult
	err = c.withRetry(ctx, "summarize", func(ctx context.Context) error {
		raw, err := c.llm.Complete(ctx, completion{
			System:     summarizeSystem,
			User:       prompt,
			SchemaName: "ticket_summary",
			Schema:     generateSchema[summaryResult](),
		})
		if err != nil {
			return err
		}
		out, err = parseSummary(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Summary{Status: out.Status, Summary: out.Summary, SuggestedAction: out.Action}, nil
}

func (c *Client) Classify(ctx context.Context, ticketID int64) (Tag, error) {
	prompt, err := c.transcript(ctx, ticketID)
	if err != nil {
		return TagUnknown, err
	}
	tag := TagUnknown
	err = c.withRetry(ctx, "classify", func(ctx context.Context) error {
		raw, err := c.llm.Complete(ctx, completion{
			System:     classifySystem,
			User:       prompt,
			SchemaName: "ticket_detection",
			Schema:     generateSchema[classifyResult](),
			MaxTokens:  50,
		})
		if err != nil {
			return err
		}
		var res classifyResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return &MalformedResponseError{Op: "classify", Reason: "invalid JSON", Raw: raw}
		}
		tag = ParseTag(strings.ToLower(strings.TrimSpace(res.Detection)))
		return nil
	})
	if err != nil {
		return TagUnknown, err
	}
	return tag, nil
}

// Paraphrase makes a single attempt; a staff member is waiting on it.
func (c *Client) Paraphrase(ctx context.Context, ticketID int64, draft string) (string, error) {
	ticket, err := c.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return "", fmt.Errorf("load ticket %d: %w", ticketID, err)
	}
	messages, err := c.tickets.ListMessages(ctx, ticketID)
	if err != nil {
		return "", fmt.Errorf("load messages of ticket %d: %w", ticketID, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.llm.Complete(callCtx, completion{
		System:     paraphraseSystem,
		User:       paraphrasePrompt(ticket, messages, draft),
		SchemaName: "paraphrase",
		Schema:     generateSchema[paraphraseResult](),
	})
	if err != nil {
		return "", err
	}
	var res paraphraseResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", &MalformedResponseError{Op: "paraphrase", Reason: "invalid JSON", Raw: raw}
	}
	if strings.TrimSpace(res.Paraphrased) == "" {
		return "", &MalformedResponseError{Op: "paraphrase", Reason: "empty paraphrase", Raw: raw}
	}
	return res.Paraphrased, nil
}

func (c *Client) transcript(ctx context.Context, ticketID int64) (string, error) {
	ticket, err := c.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return "", fmt.Errorf("load ticket %d: %w", ticketID, err)
	}
	messages, err := c.tickets.ListMessages(ctx, ticketID)
	if err != nil {
		return "", fmt.Errorf("load messages of ticket %d: %w", ticketID, err)
	}
	return transcript(ticket, messages), nil
}

// withRetry runs fn with a per-attempt timeout, waiting retryDelay between attempts.
func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == c.maxAttempts || !isRetryable(err) {
			break
		}
		c.logger.Warn("ai call failed, retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	return err
}

func parseSummary(raw string) (summaryResult, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return summaryResult{}, &MalformedResponseError{Op: "summarize", Reason: "empty response", Raw: raw}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return summaryResult{}, &MalformedResponseError{Op: "summarize", Reason: "invalid JSON", Raw: raw}
	}
	for _, key := range []string{"summary", "status", "action"} {
		if _, ok := fields[key]; !ok {
			return summaryResult{}, &MalformedResponseError{Op: "summarize", Reason: "missing field " + key, Raw: raw}
		}
	}
	var out summaryResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return summaryResult{}, &MalformedResponseError{Op: "summarize", Reason: "wrong field types", Raw: raw}
	}
	return out, nil
}
