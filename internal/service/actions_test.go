package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/ticket-relay/internal/ai"
	"github.com/relaydesk/ticket-relay/internal/domain"
	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/platform"
)

func TestDetectionOffersReplyAndResolve(t *testing.T) {
	f := newRelayFixture(t)
	f.ai.tag = ai.TagQueue
	f.addStaff(t, "USTAFF", domain.StaffRoleAgent)
	ticket := f.openTicket(t, "UREQ", "when will my project be reviewed?")

	detections := f.platform.postsWithText(staffChannel, "AI Ticket Type Detection")
	require.Len(t, detections, 1)
	assert.Equal(t, ticket.StaffThreadTS, detections[0].ThreadTS)
	require.Len(t, detections[0].Blocks, 5)
	offer := detections[0].Blocks[3].(platform.Section)
	body, _ := f.svc.cfg.Macros.Lookup("queue")
	assert.Equal(t, body, offer.Text)
	require.NotNil(t, offer.Accessory)
	f.platform.reset()

	f.svc.HandleAction(context.Background(), platform.ActionEvent{
		ActionID:  offer.Accessory.ActionID,
		Value:     offer.Accessory.Value,
		UserID:    "USTAFF",
		ChannelID: staffChannel,
		ThreadTS:  ticket.StaffThreadTS,
	})

	assert.Len(t, f.platform.postsWithText(userChannel, body), 1)
	current := f.ticket(t, ticket.ID)
	assert.True(t, current.IsClosed())
	require.NotNil(t, current.ClaimedBy)
	assert.Equal(t, "USTAFF", *current.ClaimedBy)

	msgs, err := f.store.ListMessages(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, body, msgs[0].Body)
}

func TestDetectionWithoutMacroPostsNothing(t *testing.T) {
	f := newRelayFixture(t)
	f.ai.tag = ai.TagOther
	f.openTicket(t, "UREQ", "something unusual")

	assert.Empty(t, f.platform.postsWithText(staffChannel, "AI Ticket Type Detection"))
}

func TestResolveDetectedRequiresStaff(t *testing.T) {
	f := newRelayFixture(t)
	ticket := f.openTicket(t, "UREQ", "question")

	f.svc.HandleAction(context.Background(), platform.ActionEvent{
		ActionID:  ActionResolveDetected,
		Value:     encodeValue(detectedRef{TicketID: ticket.ID, Tag: "faq"}),
		UserID:    "UOUTSIDER",
		ChannelID: staffChannel,
		ThreadTS:  ticket.StaffThreadTS,
	})

	assert.True(t, f.ticket(t, ticket.ID).IsOpen())
	assert.True(t, f.platform.hasEphemeral("UOUTSIDER", textNoPermission))
}

func TestResolveDetectedReopensWhenReplyFails(t *testing.T) {
	f := newRelayFixture(t)
	f.addStaff(t, "USTAFF", domain.StaffRoleAgent)
	ticket := f.openTicket(t, "UREQ", "question")
	f.platform.reset()
	f.platform.failPostIn[userChannel] = true

	f.svc.HandleAction(context.Background(), platform.ActionEvent{
		ActionID:  ActionResolveDetected,
		Value:     encodeValue(detectedRef{TicketID: ticket.ID, Tag: "faq"}),
		UserID:    "USTAFF",
		ChannelID: staffChannel,
		ThreadTS:  ticket.StaffThreadTS,
	})

	current := f.ticket(t, ticket.ID)
	assert.True(t, current.IsOpen())
	assert.Nil(t, current.ClosedAt)
	assert.Nil(t, current.ClaimedBy)
	assert.True(t, f.platform.hasEphemeral("USTAFF", textSomethingWrong))
	assert.Empty(t, f.platform.reactions)
}

func TestDeleteRelayedAttachments(t *testing.T) {
	f := newRelayFixture(t)
	ticket := f.openTicket(t, "UREQ", "question")
	f.platform.reset()

	f.svc.HandleAction(context.Background(), platform.ActionEvent{
		ActionID:  ActionDeleteMessage,
		Value:     `{"ts":["1.1","1.2"]}`,
		UserID:    "USTAFF",
		ChannelID: staffChannel,
		ThreadTS:  ticket.StaffThreadTS,
	})

	assert.Equal(t, []string{userChannel + "/1.1", userChannel + "/1.2"}, f.platform.deletes)
	assert.True(t, f.platform.hasEphemeral("USTAFF", textAttachmentsDeleted))
}

func TestDeleteForwardedMessage(t *testing.T) {
	f := newRelayFixture(t)
	ticket := f.openTicket(t, "UREQ", "question")
	f.platform.reset()
	f.svc.HandleMessage(context.Background(), staffReply(ticket, "USTAFF", "?oops wrong ticket"))
	notice := f.platform.ephemeralsFor("USTAFF")[0]
	button := notice.Blocks[1].(platform.Actions).Buttons[0]
	dest := f.platform.postsIn(userChannel)[0].TS

	f.svc.HandleAction(context.Background(), platform.ActionEvent{
		ActionID:  button.ActionID,
		Value:     button.Value,
		UserID:    "USTAFF",
		ChannelID: staffChannel,
		ThreadTS:  ticket.StaffThreadTS,
	})

	assert.Equal(t, []string{userChannel + "/" + dest}, f.platform.deletes)
	assert.True(t, f.platform.hasEphemeral("USTAFF", textMessageDeleted))
}

func TestEditForwardedMessage(t *testing.T) {
	f := newRelayFixture(t)
	ticket := f.openTicket(t, "UREQ", "question")
	f.platform.reset()
	f.svc.HandleMessage(context.Background(), staffReply(ticket, "USTAFF", "?restart teh app"))
	button := f.platform.ephemeralsFor("USTAFF")[0].Blocks[1].(platform.Actions).Buttons[1]
	dest := f.platform.postsIn(userChannel)[0].TS

	f.svc.HandleAction(context.Background(), platform.ActionEvent{
		ActionID:  button.ActionID,
		Value:     button.Value,
		UserID:    "USTAFF",
		ChannelID: staffChannel,
		TriggerID: "trigger-1",
	})

	require.Len(t, f.platform.modals, 1)
	modal := f.platform.modals[0]
	assert.Equal(t, ViewEditedMessage, modal.CallbackID)
	assert.Equal(t, dest, modal.PrivateMetadata)

	f.svc.HandleViewSubmission(context.Background(), platform.ViewSubmission{
		CallbackID:      modal.CallbackID,
		PrivateMetadata: modal.PrivateMetadata,
		UserID:          "USTAFF",
		Values:          map[string]string{editInputAction: "restart the app"},
	})

	require.Len(t, f.platform.updates, 1)
	assert.Equal(t, userChannel, f.platform.updates[0].Channel)
	assert.Equal(t, dest, f.platform.updates[0].TS)
	assert.Equal(t, "restart the app", f.platform.updates[0].Msg.Text)

	msgs, err := f.store.ListMessages(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "restart the app", msgs[0].Body)
	assert.Len(t, f.eventsOf(events.EventTicketMessageEdited), 1)
}

func TestEmptyViewSubmissionIsIgnored(t *testing.T) {
	f := newRelayFixture(t)

	f.svc.HandleViewSubmission(context.Background(), platform.ViewSubmission{
		CallbackID:      ViewEditedMessage,
		PrivateMetadata: "1.1",
		Values:          map[string]string{editInputAction: "   "},
	})

	assert.Empty(t, f.platform.updates)
}

func TestMalformedActionValuesAreIgnored(t *testing.T) {
	f := newRelayFixture(t)
	for _, ev := range []platform.ActionEvent{
		{ActionID: ActionResolveTicket, Value: "abc"},
		{ActionID: ActionClaimTicket, Value: "-3"},
		{ActionID: ActionDeleteMessage, Value: "{not json"},
		{ActionID: ActionEditMessage, Value: `{"ts":""}`},
		{ActionID: ActionSendParaphrased, Value: ""},
		{ActionID: "mystery_button", Value: "1"},
	} {
		ev.UserID = "USTAFF"
		ev.ChannelID = staffChannel
		f.svc.HandleAction(context.Background(), ev)
	}

	assert.Empty(t, f.platform.posts)
	assert.Empty(t, f.platform.ephemerals)
	assert.Empty(t, f.platform.deletes)
	assert.Empty(t, f.platform.modals)
}
