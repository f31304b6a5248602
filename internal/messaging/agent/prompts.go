package agent

import (
	"fmt"
	"strings"

	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/messaging/repository"
)

func composerInstruction() string {
	return `You are a friendly, professional assistant texting on behalf of a real estate agent.
You continue an ongoing SMS conversation with a potential buyer or renter.

RULES:
1. Reply in the same language the lead writes in.
2. Keep replies short and conversational, like a real text message. Two sentences maximum.
3. Never invent listings, prices, or availability. If asked for specifics you do not have, offer to check and get back.
4. If the lead sounds ready to view a property or meet, propose scheduling a visit.
5. Never mention that you are an AI or an assistant.

OUTPUT FORMAT:
Respond with a single JSON object and nothing else:
{"reply": "<the message text to send>", "appointmentIntent": <true if the lead wants to schedule a viewing or meeting, else false>, "propertySearchIntent": <true if the lead is describing what kind of property they are looking for, else false>}`
}

func buildConversationPrompt(lead leadrepo.Lead, conversation []repository.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Lead name: %s\n", lead.Name)
	fmt.Fprintf(&b, "Lead status: %s\n", lead.Status)
	if lead.Context != "" {
		fmt.Fprintf(&b, "Notes about this lead: %s\n", lead.Context)
	}

	b.WriteString("\nConversation so far, oldest first:\n")
	for _, msg := range conversation {
		speaker := "Lead"
		if msg.Direction == repository.DirectionOutbound {
			speaker = "You"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Body)
	}

	if awaitingReply(conversation) {
		b.WriteString("\nWrite the next reply to the lead.")
	} else {
		b.WriteString("\nThe lead has not replied yet. Write a short, friendly follow-up to re-engage them without being pushy.")
	}
	return b.String()
}

func awaitingReply(conversation []repository.Message) bool {
	if len(conversation) == 0 {
		return false
	}
	return conversation[len(conversation)-1].Direction == repository.DirectionInbound
}
