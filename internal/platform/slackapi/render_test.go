package slackapi

import (
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/ticket-relay/internal/platform"
)

func TestRenderBlocks(t *testing.T) {
	blocks := renderBlocks([]platform.Block{
		platform.Header{Text: "New ticket!"},
		platform.Section{Text: "*hi*", Accessory: &platform.Button{ActionID: "resolve_ticket", Label: "Resolve", Value: "7", Style: platform.ButtonPrimary}},
		platform.Actions{Buttons: []platform.Button{{ActionID: "claim_ticket", Label: "Claim", Value: "7"}}},
		platform.Context{Elements: []string{"#tk-7"}},
		platform.Divider{},
	})
	require.Len(t, blocks, 5)

	section, ok := blocks[1].(*slack.SectionBlock)
	require.True(t, ok)
	require.NotNil(t, section.Accessory)
	require.NotNil(t, section.Accessory.ButtonElement)
	assert.Equal(t, "resolve_ticket", section.Accessory.ButtonElement.ActionID)
	assert.Equal(t, slack.StylePrimary, section.Accessory.ButtonElement.Style)

	actions, ok := blocks[2].(*slack.ActionBlock)
	require.True(t, ok)
	assert.Len(t, actions.Elements.ElementSet, 1)

	assert.Equal(t, slack.MBTDivider, blocks[4].BlockType())
}

func TestRenderModal(t *testing.T) {
	view := renderModal(platform.Modal{
		CallbackID:      "edited_message",
		PrivateMetadata: "1.5",
		Title:           "Edit message",
		InputBlockID:    "edit_block",
		InputActionID:   "user_input",
		InputLabel:      "Message",
		InitialValue:    "hello",
	})

	assert.Equal(t, slack.VTModal, view.Type)
	assert.Equal(t, "1.5", view.PrivateMetadata)
	require.Len(t, view.Blocks.BlockSet, 1)
	input, ok := view.Blocks.BlockSet[0].(*slack.InputBlock)
	require.True(t, ok)
	assert.Equal(t, "edit_block", input.BlockID)
}
