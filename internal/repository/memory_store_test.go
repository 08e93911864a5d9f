package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/ticket-relay/internal/domain"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

func newTicket(userTS, staffTS string) *domain.Ticket {
	return &domain.Ticket{
		RequesterID:   "U1",
		RequesterName: "ada",
		Question:      "why is my build red",
		UserThreadTS:  userTS,
		StaffThreadTS: staffTS,
	}
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := newTicket("1.0", "2.0")
	require.NoError(t, s.CreateTicket(ctx, first))
	second := newTicket("3.0", "4.0")
	require.NoError(t, s.CreateTicket(ctx, second))

	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, domain.TicketStatusOpen, first.Status)

	byUser, err := s.FindTicket(ctx, "1.0")
	require.NoError(t, err)
	byStaff, err := s.FindTicket(ctx, "2.0")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byUser.ID)
	assert.Equal(t, first.ID, byStaff.ID)

	_, err = s.FindTicket(ctx, "9.9")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryStoreRejectsIncompleteTicket(t *testing.T) {
	err := NewMemoryStore().CreateTicket(context.Background(), &domain.Ticket{RequesterID: "U1"})
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
}

func TestMemoryStoreStatusTracksCloseTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ticket := newTicket("1.0", "2.0")
	require.NoError(t, s.CreateTicket(ctx, ticket))

	ok, err := s.SetStatus(ctx, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := s.GetTicket(ctx, ticket.ID)
	assert.True(t, got.IsClosed())
	assert.NotNil(t, got.ClosedAt)

	ok, err = s.SetStatus(ctx, ticket.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ = s.GetTicket(ctx, ticket.ID)
	assert.Nil(t, got.ClosedAt)

	ok, err = s.SetStatus(ctx, 999, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreClaimHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ticket := newTicket("1.0", "2.0")
	require.NoError(t, s.CreateTicket(ctx, ticket))

	var wins int32
	var wg sync.WaitGroup
	for _, actor := range []string{"S1", "S2", "S3", "S4"} {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			ok, err := s.SetClaimant(ctx, ticket.ID, actor)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(actor)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	got, _ := s.GetTicket(ctx, ticket.ID)
	require.NotNil(t, got.ClaimedBy)
}

func TestMemoryStoreMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ticket := newTicket("1.0", "2.0")
	require.NoError(t, s.CreateTicket(ctx, ticket))

	dest := "2.5"
	require.NoError(t, s.AppendMessage(ctx, &domain.TicketMessage{TicketID: ticket.ID, SenderID: "U1", Body: "hi", OriginTS: "1.5", DestTS: &dest}))
	require.NoError(t, s.AppendMessage(ctx, &domain.TicketMessage{TicketID: ticket.ID, SenderID: "S1", Body: "note", OriginTS: "2.6", IsStaff: true}))

	ts, err := s.GetDestMessageTS(ctx, "1.5")
	require.NoError(t, err)
	assert.Equal(t, "2.5", ts)

	_, err = s.GetDestMessageTS(ctx, "2.6")
	assert.True(t, apperrors.IsNotFound(err))

	id, err := s.UpdateMessageBody(ctx, "2.5", "hi, edited")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, id)

	msgs, err := s.ListMessages(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi, edited", msgs[0].Body)
}

func TestMemoryStoreListTicketsFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i, ts := range []string{"1", "2", "3"} {
		tk := newTicket("u"+ts, "s"+ts)
		require.NoError(t, s.CreateTicket(ctx, tk))
		if i == 0 {
			_, _ = s.SetStatus(ctx, tk.ID, domain.TicketStatusClosed)
		}
	}

	open, err := s.ListTickets(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Greater(t, open[0].ID, open[1].ID)
}

func TestMemoryStoreStaff(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertStaff(ctx, &domain.StaffMember{SlackID: "S2", Role: domain.StaffRoleAgent, Active: true}))
	require.NoError(t, s.UpsertStaff(ctx, &domain.StaffMember{SlackID: "S1", Role: domain.StaffRoleAdmin, Active: true}))
	require.NoError(t, s.UpsertStaff(ctx, &domain.StaffMember{SlackID: "S3", Role: domain.StaffRoleAgent, Active: false}))

	staff, err := s.ListActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, "S1", staff[0].SlackID)
}
