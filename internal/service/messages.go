package service

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/relaydesk/ticket-relay/internal/ai"
	"github.com/relaydesk/ticket-relay/internal/platform"
)

// Action ids carried by buttons and modals.
const (
	ActionResolveTicket   = "resolve_ticket"
	ActionClaimTicket     = "claim_ticket"
	ActionSendParaphrased = "send_paraphrased"
	ActionResolveDetected = "resolve_detected"
	ActionDeleteMessage   = "delete_message"
	ActionEditMessage     = "edit_message"

	ViewEditedMessage = "edited_message"

	editInputBlock  = "input_block"
	editInputAction = "user_input"
)

const (
	attachmentQuestion = "📎 attachment"

	textNewTicket          = "New ticket!"
	textMessageSent        = "Message sent."
	textAttachmentsSent    = "Attachments sent."
	textClosedForStaff     = "Hey there! Looks like this ticket was resolved. The user did not receive your response."
	textNoPermission       = "Are you sure you have the right permissions for this?"
	textNotYourTicket      = "Only staff or the person who opened this ticket can resolve it."
	textOwnTicket          = "You cannot close your own ticket as a staff member."
	textAlreadyClosed      = "This ticket is already resolved."
	textAlreadyOpen        = "This ticket is already open."
	textSomethingWrong     = "Something went wrong, please try again."
	textCreateFailed       = "Sorry, we could not open a ticket for your message. Please try again in a moment."
	textParaphraseUsage    = "Usage: `!ai <draft reply>`"
	textAIUnavailable      = "The AI assistant is not available right now. Please try again later."
	textSelfClosedClaim    = "Hey! So it looks the user closed this ticket. Please claim this ticket if you handled it."
	textAIDisclaimer       = "This summary is made by AI so please validate any information given."
	textReviewSuggestion   = "Please remember to review this before sending."
	textNoRecommendedStep  = "_No recommended action._"
	textMessageDeleted     = "Deleted message."
	textAttachmentsDeleted = "Attachments deleted."
)

func (s *RelayService) textClosedForUser() string {
	return fmt.Sprintf("Hey there! Looks like this ticket was resolved. The %s Team did not receive your response.", s.cfg.TeamName)
}

func (s *RelayService) textReceived() string {
	return fmt.Sprintf("Hey there! We have received your question, and someone from the %s Team will get back to you shortly!", s.cfg.TeamName)
}

func textResolvedStaff(actorID string) string {
	return fmt.Sprintf("Hey! Would you look at that, this ticket was marked as resolved by <@%s>!", actorID)
}

func (s *RelayService) textResolvedUser() string {
	return fmt.Sprintf("Hey! Would you look at that, this ticket was marked as resolved! The %s Team will no longer receive your messages. If you still have a question, please feel free to open a new ticket.", s.cfg.TeamName)
}

func textReopenedStaff(actorID string) string {
	return fmt.Sprintf("This ticket was reopened by <@%s>.", actorID)
}

func (s *RelayService) textReopenedUser(actorID string) string {
	return fmt.Sprintf("This ticket was reopened by <@%s>. The %s Team will receive your messages again.", actorID, s.cfg.TeamName)
}

func textClaimed(actorID string) string {
	return fmt.Sprintf("*This ticket has been claimed by <@%s>!*", actorID)
}

func textAlreadyClaimed(claimant string) string {
	return fmt.Sprintf("*This ticket is already claimed by <@%s>!*", claimant)
}

// rootBlocks renders the staff-side root post of a ticket. The context line
// points back at the requester and their original message.
func rootBlocks(question, requesterID, permalink string) []platform.Block {
	ref := fmt.Sprintf("<@%s> `%s`", requesterID, requesterID)
	if permalink != "" {
		ref += fmt.Sprintf(" | <%s|thread>", permalink)
	}
	return []platform.Block{
		platform.Section{Text: question},
		platform.Context{Elements: []string{ref}},
	}
}

func resolveButton(ticketID int64) *platform.Button {
	return &platform.Button{
		ActionID: ActionResolveTicket,
		Label:    "Resolve Ticket",
		Value:    strconv.FormatInt(ticketID, 10),
		Style:    platform.ButtonPrimary,
	}
}

func claimButton(ticketID int64) *platform.Button {
	return &platform.Button{
		ActionID: ActionClaimTicket,
		Label:    "Claim Ticket",
		Value:    strconv.FormatInt(ticketID, 10),
		Style:    platform.ButtonPrimary,
	}
}

func (s *RelayService) newTicketBlocks(ticketID int64, requesterID string) []platform.Block {
	dash := fmt.Sprintf("%s/admin/tickets/%s", s.cfg.DashboardURL, s.ticketLabel(ticketID))
	search := fmt.Sprintf("%s/admin/tickets?search=%s", s.cfg.DashboardURL, requesterID)
	return []platform.Block{
		platform.Section{Text: textNewTicket, Accessory: resolveButton(ticketID)},
		platform.Context{Elements: []string{
			fmt.Sprintf("#%s | <%s|view on dash> | <%s|user tickets (search)>", s.ticketLabel(ticketID), dash, search),
		}},
	}
}

func (s *RelayService) receivedBlocks(ticketID int64, staffLink string) []platform.Block {
	ref := "ticket " + s.ticketLabel(ticketID)
	if staffLink != "" {
		ref += fmt.Sprintf(" • <%s|staff link>", staffLink)
	}
	return []platform.Block{
		platform.Section{Text: s.textReceived(), Accessory: resolveButton(ticketID)},
		platform.Context{Elements: []string{ref}},
	}
}

// messageRef is the button value pointing at relayed messages.
type messageRef struct {
	TS tsList `json:"ts"`
}

// tsList decodes either a single timestamp or a list of them.
type tsList []string

func (l *tsList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = tsList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

type editRef struct {
	TS string `json:"ts"`
}

type paraphraseRef struct {
	TicketID    int64  `json:"ticket_id"`
	Paraphrased string `json:"paraphrased"`
}

type detectedRef struct {
	TicketID int64  `json:"ticket_id"`
	Tag      string `json:"tag"`
}

func encodeValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

func sentBlocks(destTS string) []platform.Block {
	return []platform.Block{
		platform.Section{Text: textMessageSent},
		platform.Actions{Buttons: []platform.Button{
			{ActionID: ActionDeleteMessage, Label: "Delete message", Value: encodeValue(messageRef{TS: tsList{destTS}}), Style: platform.ButtonDanger},
			{ActionID: ActionEditMessage, Label: "Edit message", Value: encodeValue(editRef{TS: destTS})},
		}},
	}
}

func attachmentsSentBlocks(destTS []string) []platform.Block {
	return []platform.Block{
		platform.Section{
			Text: textAttachmentsSent,
			Accessory: &platform.Button{
				ActionID: ActionDeleteMessage,
				Label:    "Delete Attachments",
				Value:    encodeValue(messageRef{TS: destTS}),
				Style:    platform.ButtonDanger,
			},
		},
	}
}

func summaryBlocks(summary *ai.Summary) []platform.Block {
	action := summary.SuggestedAction
	if action == "" {
		action = textNoRecommendedStep
	}
	return []platform.Block{
		platform.Header{Text: "AI Ticket Summary"},
		platform.Divider{},
		platform.Section{Text: fmt.Sprintf("_Status: %s_\n\n*Summary*: %s\n*Recommended Action*: %s", summary.Status, summary.Summary, action)},
		platform.Divider{},
		platform.Context{Elements: []string{textAIDisclaimer}},
	}
}

func paraphraseBlocks(ticketID int64, paraphrased string) []platform.Block {
	return []platform.Block{
		platform.Section{Text: "*AI Suggestion:*\n" + paraphrased},
		platform.Actions{Buttons: []platform.Button{{
			ActionID: ActionSendParaphrased,
			Label:    "Send",
			Value:    encodeValue(paraphraseRef{TicketID: ticketID, Paraphrased: paraphrased}),
			Style:    platform.ButtonPrimary,
		}}},
		platform.Context{Elements: []string{textReviewSuggestion}},
	}
}

func detectionBlocks(ticketID int64, tag ai.Tag, reply string) []platform.Block {
	return []platform.Block{
		platform.Header{Text: "AI Ticket Type Detection"},
		platform.Divider{},
		platform.Section{Text: fmt.Sprintf("This ticket looks like a *%s* ticket.\n*Recommended reply:*", tag)},
		platform.Section{
			Text: reply,
			Accessory: &platform.Button{
				ActionID: ActionResolveDetected,
				Label:    "Reply and Resolve",
				Value:    encodeValue(detectedRef{TicketID: ticketID, Tag: string(tag)}),
				Style:    platform.ButtonPrimary,
			},
		},
		platform.Context{Elements: []string{textAIDisclaimer}},
	}
}

func editModal(ts string) platform.Modal {
	return platform.Modal{
		CallbackID:      ViewEditedMessage,
		PrivateMetadata: ts,
		Title:           "Edit message",
		SubmitLabel:     "Save",
		InputBlockID:    editInputBlock,
		InputActionID:   editInputAction,
		InputLabel:      "New message",
		Multiline:       true,
	}
}
