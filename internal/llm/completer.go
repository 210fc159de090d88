package llm

import (
	"context"

	"github.com/jonathan/mentor-match/internal/types"
)

// Completer binds a Client to one model tier and speaks in chat turns
type Completer struct {
	client Client
	tier   ModelTier
}

// NewCompleter creates a Completer that routes every call to tier.
func NewCompleter(client Client, tier ModelTier) *Completer {
	return &Completer{client: client, tier: tier}
}

// Complete maps the turn log onto provider roles and returns the raw JSON reply.
func (c *Completer) Complete(ctx context.Context, systemPrompt string, turns []types.Turn) (string, error) {
	return c.client.ChatJSON(ctx, systemPrompt, ToMessages(turns), c.tier)
}

// ToMessages converts chat turns to provider messages.
func ToMessages(turns []types.Turn) []Message {
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		role := RoleUser
		if t.Speaker == types.SpeakerAssistant {
			role = RoleModel
		}
		msgs = append(msgs, Message{Role: role, Text: t.Text})
	}
	return msgs
}
