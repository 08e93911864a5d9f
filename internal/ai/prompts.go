package ai

import (
	"fmt"
	"strings"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

const summarizeSystem = `You summarize support tickets for the staff who handle them.
Always answer with the requested JSON object and nothing else.
status is one of: resolved, pending_user, pending_staff, unclear.
summary is one or two sentences.
action is the next step in one sentence, or an empty string when the ticket is resolved.`

const classifySystem = `You triage support tickets. Pick exactly one tag:
fraud: the question is about fraud or account bans, which this team cannot handle.
fthelp: a general help question that belongs in the general help channel.
faq: the question is answered by the public FAQ.
queue: the user is asking why their submission has not been reviewed yet.
other: anything else.
Answer with the requested JSON object and nothing else.`

const paraphraseSystem = `You help support staff reply to users.
Rewrite the staff draft so it is clear, friendly and complete, using the ticket conversation for context.
Keep the meaning of the draft. Do not invent facts or promises.
Answer with the requested JSON object and nothing else.`

func transcript(ticket *domain.Ticket, messages []domain.TicketMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", ticket.Question)
	for _, m := range messages {
		body := m.Body
		if body == "" && len(m.Attachments) > 0 {
			names := make([]string, 0, len(m.Attachments))
			for _, a := range m.Attachments {
				names = append(names, a.Name)
			}
			body = "[attachments: " + strings.Join(names, ", ") + "]"
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Speaker(), body)
	}
	return b.String()
}

func paraphrasePrompt(ticket *domain.Ticket, messages []domain.TicketMessage, draft string) string {
	return transcript(ticket, messages) + "\nStaff draft:\n" + draft
}
