package slackapi

import (
	"github.com/slack-go/slack"

	"github.com/relaydesk/ticket-relay/internal/platform"
)

func renderBlocks(blocks []platform.Block) []slack.Block {
	out := make([]slack.Block, 0, len(blocks))
	for _, b := range blocks {
		switch v := b.(type) {
		case platform.Header:
			out = append(out, slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, v.Text, true, false)))
		case platform.Section:
			var accessory *slack.Accessory
			if v.Accessory != nil {
				accessory = slack.NewAccessory(renderButton(*v.Accessory))
			}
			out = append(out, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, v.Text, false, false), nil, accessory))
		case platform.Actions:
			elements := make([]slack.BlockElement, 0, len(v.Buttons))
			for _, btn := range v.Buttons {
				elements = append(elements, renderButton(btn))
			}
			out = append(out, slack.NewActionBlock("", elements...))
		case platform.Context:
			elements := make([]slack.MixedElement, 0, len(v.Elements))
			for _, text := range v.Elements {
				elements = append(elements, slack.NewTextBlockObject(slack.MarkdownType, text, false, false))
			}
			out = append(out, slack.NewContextBlock("", elements...))
		case platform.Divider:
			out = append(out, slack.NewDividerBlock())
		}
	}
	return out
}

func renderButton(b platform.Button) *slack.ButtonBlockElement {
	btn := slack.NewButtonBlockElement(b.ActionID, b.Value, slack.NewTextBlockObject(slack.PlainTextType, b.Label, true, false))
	if b.Style != platform.ButtonDefault {
		btn.Style = slack.Style(b.Style)
	}
	return btn
}

func renderModal(m platform.Modal) slack.ModalViewRequest {
	input := slack.NewPlainTextInputBlockElement(nil, m.InputActionID)
	input.InitialValue = m.InitialValue
	input.Multiline = m.Multiline

	submit := m.SubmitLabel
	if submit == "" {
		submit = "Submit"
	}
	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      m.CallbackID,
		PrivateMetadata: m.PrivateMetadata,
		Title:           slack.NewTextBlockObject(slack.PlainTextType, m.Title, false, false),
		Submit:          slack.NewTextBlockObject(slack.PlainTextType, submit, false, false),
		Close:           slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		Blocks: slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewInputBlock(
					m.InputBlockID,
					slack.NewTextBlockObject(slack.PlainTextType, m.InputLabel, false, false),
					nil,
					input),
			},
		},
	}
}
