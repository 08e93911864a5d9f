package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/config"
	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/repository"
)

type scriptedCompleter struct {
	replies []string
	errs    []error
	calls   []completion
}

func (s *scriptedCompleter) Complete(_ context.Context, req completion) (string, error) {
	i := len(s.calls)
	s.calls = append(s.calls, req)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return reply, err
}

func seededStore(t *testing.T) (*repository.MemoryStore, int64) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	ticket := &domain.Ticket{RequesterID: "U1", Question: "my project was rejected", UserThreadTS: "1.0", StaffThreadTS: "2.0"}
	require.NoError(t, store.CreateTicket(ctx, ticket))
	require.NoError(t, store.AppendMessage(ctx, &domain.TicketMessage{TicketID: ticket.ID, SenderID: "S1", IsStaff: true, Body: "which project?", OriginTS: "2.1"}))
	return store, ticket.ID
}

func testConfig() config.AIConfig {
	return config.AIConfig{Timeout: time.Second, MaxAttempts: 3, RetryDelay: time.Millisecond}
}

func TestSummarize(t *testing.T) {
	store, id := seededStore(t)
	llm := &scriptedCompleter{replies: []string{`{"summary":"User asks about a rejection.","status":"pending_staff","action":"Explain the rejection."}`}}
	c := newClient(llm, store, testConfig(), zap.NewNop())

	sum, err := c.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingStaff, sum.Status)
	assert.Equal(t, "Explain the rejection.", sum.SuggestedAction)

	require.Len(t, llm.calls, 1)
	assert.Contains(t, llm.calls[0].User, "Question: my project was rejected")
	assert.Contains(t, llm.calls[0].User, "Staff: which project?")
}

func TestSummarizeMissingFieldCarriesRaw(t *testing.T) {
	store, id := seededStore(t)
	bad := `{"summary":"x","status":"unclear"}`
	llm := &scriptedCompleter{replies: []string{bad, bad, bad}}
	c := newClient(llm, store, testConfig(), zap.NewNop())

	_, err := c.Summarize(context.Background(), id)
	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, bad, malformed.Raw)
	assert.Contains(t, malformed.Reason, "action")
	assert.Len(t, llm.calls, 3)
}

func TestClassifyRetriesThenSucceeds(t *testing.T) {
	store, id := seededStore(t)
	llm := &scriptedCompleter{
		errs:    []error{errors.New("connection reset"), nil},
		replies: []string{"", `{"detection":"queue"}`},
	}
	c := newClient(llm, store, testConfig(), zap.NewNop())

	tag, err := c.Classify(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, TagQueue, tag)
	assert.Len(t, llm.calls, 2)
}

func TestClassifyUnknownTag(t *testing.T) {
	store, id := seededStore(t)
	llm := &scriptedCompleter{replies: []string{`{"detection":"billing"}`}}
	c := newClient(llm, store, testConfig(), zap.NewNop())

	tag, err := c.Classify(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, TagUnknown, tag)
}

func TestClassifyGivesUpAfterBudget(t *testing.T) {
	store, id := seededStore(t)
	fail := errors.New("timeout")
	llm := &scriptedCompleter{errs: []error{fail, fail, fail, fail}}
	c := newClient(llm, store, testConfig(), zap.NewNop())

	tag, err := c.Classify(context.Background(), id)
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, TagUnknown, tag)
	assert.Len(t, llm.calls, 3)
}

func TestParaphraseSingleAttempt(t *testing.T) {
	store, id := seededStore(t)
	llm := &scriptedCompleter{errs: []error{errors.New("boom")}}
	c := newClient(llm, store, testConfig(), zap.NewNop())

	_, err := c.Paraphrase(context.Background(), id, "pls add readme")
	assert.Error(t, err)
	assert.Len(t, llm.calls, 1)

	llm = &scriptedCompleter{replies: []string{`{"paraphrased":"Could you add a README to your project?"}`}}
	c = newClient(llm, store, testConfig(), zap.NewNop())
	out, err := c.Paraphrase(context.Background(), id, "pls add readme")
	require.NoError(t, err)
	assert.Equal(t, "Could you add a README to your project?", out)
	assert.Contains(t, llm.calls[0].User, "pls add readme")
}

func TestDisabled(t *testing.T) {
	c, err := NewClient(config.AIConfig{}, repository.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)
	_, err = c.Summarize(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestParseTag(t *testing.T) {
	assert.Equal(t, TagFAQ, ParseTag("faq"))
	assert.Equal(t, TagUnknown, ParseTag("FAQ!"))
}
