package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/ai"
	"github.com/relaydesk/ticket-relay/internal/config"
	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/observability"
	"github.com/relaydesk/ticket-relay/internal/platform"
	"github.com/relaydesk/ticket-relay/internal/repository"
)

const (
	userChannel  = "CUSER"
	staffChannel = "CSTAFF"
)

var tsCounter atomic.Int64

func newTS() string {
	return fmt.Sprintf("1600000000.%06d", tsCounter.Add(1))
}

type postedMessage struct {
	platform.Message
	TS string
}

type reactionCall struct {
	Channel string
	TS      string
	Name    string
	Added   bool
}

type updateCall struct {
	Channel string
	TS      string
	Msg     platform.Message
}

type uploadCall struct {
	platform.Upload
	Content string
}

// fakePlatform records every outbound call.
type fakePlatform struct {
	mu            sync.Mutex
	posts         []postedMessage
	ephemerals    []platform.Ephemeral
	reactions     []reactionCall
	updates       []updateCall
	deletes       []string
	modals        []platform.Modal
	uploads       []uploadCall
	shares        map[string]string
	failDownload  map[string]bool
	stallDownload map[string]bool
	failPostIn    map[string]bool
	panicProfile  bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		shares:        map[string]string{},
		failDownload:  map[string]bool{},
		stallDownload: map[string]bool{},
		failPostIn:    map[string]bool{},
	}
}

func (p *fakePlatform) PostMessage(_ context.Context, msg platform.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPostIn[msg.Channel] {
		return "", errors.New("channel_not_found")
	}
	ts := newTS()
	p.posts = append(p.posts, postedMessage{Message: msg, TS: ts})
	return ts, nil
}

func (p *fakePlatform) PostEphemeral(_ context.Context, msg platform.Ephemeral) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ephemerals = append(p.ephemerals, msg)
	return nil
}

func (p *fakePlatform) AddReaction(_ context.Context, channel, ts, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactions = append(p.reactions, reactionCall{Channel: channel, TS: ts, Name: name, Added: true})
	return nil
}

func (p *fakePlatform) RemoveReaction(_ context.Context, channel, ts, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactions = append(p.reactions, reactionCall{Channel: channel, TS: ts, Name: name})
	return nil
}

func (p *fakePlatform) UpdateMessage(_ context.Context, channel, ts string, msg platform.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, updateCall{Channel: channel, TS: ts, Msg: msg})
	return nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, channel, ts string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes = append(p.deletes, channel+"/"+ts)
	return nil
}

func (p *fakePlatform) UserProfile(_ context.Context, userID string) (platform.Profile, error) {
	if p.panicProfile {
		panic("profile service exploded")
	}
	return platform.Profile{UserID: userID, DisplayName: "name-" + userID, AvatarURL: "https://avatars.test/" + userID}, nil
}

func (p *fakePlatform) Permalink(_ context.Context, channel, ts string) (string, error) {
	return "https://chat.test/archives/" + channel + "/p" + strings.ReplaceAll(ts, ".", ""), nil
}

func (p *fakePlatform) DownloadFile(ctx context.Context, url string, w io.Writer) error {
	p.mu.Lock()
	fail, stall := p.failDownload[url], p.stallDownload[url]
	p.mu.Unlock()
	if fail {
		return errors.New("download failed")
	}
	if stall {
		<-ctx.Done()
		return ctx.Err()
	}
	_, err := fmt.Fprintf(w, "content of %s", url)
	return err
}

func (p *fakePlatform) UploadFile(_ context.Context, up platform.Upload) (platform.UploadResult, error) {
	content, err := os.ReadFile(up.Path)
	if err != nil {
		return platform.UploadResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads = append(p.uploads, uploadCall{Upload: up, Content: string(content)})
	fileID := fmt.Sprintf("F%d", len(p.uploads))
	p.shares[fileID] = newTS()
	return platform.UploadResult{FileID: fileID}, nil
}

func (p *fakePlatform) FileShareTS(_ context.Context, fileID, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shares[fileID], nil
}

func (p *fakePlatform) OpenModal(_ context.Context, _ string, modal platform.Modal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modals = append(p.modals, modal)
	return nil
}

func (p *fakePlatform) postsIn(channel string) []postedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []postedMessage
	for _, m := range p.posts {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

func (p *fakePlatform) postsWithText(channel, text string) []postedMessage {
	var out []postedMessage
	for _, m := range p.postsIn(channel) {
		if m.Text == text {
			out = append(out, m)
		}
	}
	return out
}

func (p *fakePlatform) ephemeralsFor(userID string) []platform.Ephemeral {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []platform.Ephemeral
	for _, e := range p.ephemerals {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (p *fakePlatform) hasEphemeral(userID, text string) bool {
	for _, e := range p.ephemeralsFor(userID) {
		if e.Text == text {
			return true
		}
	}
	return false
}

func (p *fakePlatform) reactionsOn(ts string) []reactionCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []reactionCall
	for _, r := range p.reactions {
		if r.TS == ts {
			out = append(out, r)
		}
	}
	return out
}

func (p *fakePlatform) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = nil
	p.ephemerals = nil
	p.reactions = nil
	p.updates = nil
	p.deletes = nil
	p.modals = nil
	p.uploads = nil
}

// fakeAI answers with whatever it is given and fails with ErrDisabled otherwise.
type fakeAI struct {
	summary       *ai.Summary
	summaryErr    error
	tag           ai.Tag
	paraphrased   string
	paraphraseErr error
	summarized    atomic.Int32
}

func (f *fakeAI) Summarize(context.Context, int64) (*ai.Summary, error) {
	f.summarized.Add(1)
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	if f.summary == nil {
		return nil, ai.ErrDisabled
	}
	return f.summary, nil
}

func (f *fakeAI) Classify(context.Context, int64) (ai.Tag, error) {
	if f.tag == "" {
		return ai.TagUnknown, ai.ErrDisabled
	}
	return f.tag, nil
}

func (f *fakeAI) Paraphrase(context.Context, int64, string) (string, error) {
	if f.paraphraseErr != nil {
		return "", f.paraphraseErr
	}
	if f.paraphrased == "" {
		return "", ai.ErrDisabled
	}
	return f.paraphrased, nil
}

type relayFixture struct {
	svc      *RelayService
	platform *fakePlatform
	store    *repository.MemoryStore
	ai       *fakeAI
	metrics  *observability.Metrics
	events   []events.Event
	mu       sync.Mutex
}

func testRelayConfig() config.RelayConfig {
	return config.RelayConfig{
		UserChannelID:    userChannel,
		StaffChannelID:   staffChannel,
		TeamName:         "Support",
		DashboardURL:     "https://dash.test",
		TicketPrefix:     "tk",
		ResolvedReaction: "white_check_mark",
		Macros:           domain.DefaultMacros("Support"),
		FilePollAttempts: 1,
	}
}

func newRelayFixture(t *testing.T, mutate ...func(*config.RelayConfig)) *relayFixture {
	t.Helper()
	cfg := testRelayConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	f := &relayFixture{
		platform: newFakePlatform(),
		store:    repository.NewMemoryStore(),
		ai:       &fakeAI{},
		metrics:  observability.NewMetrics(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range events.TicketEventTypes {
		dispatcher.Subscribe(et, func(_ context.Context, ev events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, ev)
			return nil
		})
	}
	f.svc = NewRelayService(cfg, RelayDependencies{
		Store:      f.store,
		Platform:   f.platform,
		AI:         f.ai,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    f.metrics,
	})
	f.svc.async = func(fn func()) { fn() }
	return f
}

func (f *relayFixture) addStaff(t *testing.T, id string, role domain.StaffRole) {
	t.Helper()
	require.NoError(t, f.store.UpsertStaff(context.Background(), &domain.StaffMember{SlackID: id, Name: id, Role: role, Active: true}))
}

func (f *relayFixture) eventsOf(et events.EventType) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, ev := range f.events {
		if ev.Type == et {
			out = append(out, ev)
		}
	}
	return out
}

// openTicket posts a top-level user message and returns the ticket it opened.
func (f *relayFixture) openTicket(t *testing.T, userID, text string) *domain.Ticket {
	t.Helper()
	ts := newTS()
	f.svc.HandleMessage(context.Background(), platform.MessageEvent{
		ClientMsgID: "msg-" + ts,
		Channel:     userChannel,
		User:        userID,
		Text:        text,
		TS:          ts,
	})
	ticket, err := f.store.FindTicket(context.Background(), ts)
	require.NoError(t, err)
	return ticket
}

func (f *relayFixture) ticket(t *testing.T, id int64) *domain.Ticket {
	t.Helper()
	ticket, err := f.store.GetTicket(context.Background(), id)
	require.NoError(t, err)
	return ticket
}

func (f *relayFixture) close(t *testing.T, id int64) {
	t.Helper()
	ok, err := f.store.SetStatus(context.Background(), id, domain.TicketStatusClosed)
	require.NoError(t, err)
	require.True(t, ok)
}

func userReply(ticket *domain.Ticket, userID, text string, files ...platform.FileRef) platform.MessageEvent {
	ts := newTS()
	return platform.MessageEvent{
		ClientMsgID: "msg-" + ts,
		Channel:     userChannel,
		User:        userID,
		Text:        text,
		TS:          ts,
		ThreadTS:    ticket.UserThreadTS,
		Files:       files,
	}
}

func staffReply(ticket *domain.Ticket, userID, text string, files ...platform.FileRef) platform.MessageEvent {
	ts := newTS()
	return platform.MessageEvent{
		ClientMsgID: "msg-" + ts,
		Channel:     staffChannel,
		User:        userID,
		Text:        text,
		TS:          ts,
		ThreadTS:    ticket.StaffThreadTS,
		Files:       files,
	}
}
