package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

// MessagesManager turns a ConversationState into the bounded message window
// handed to the generator.
type MessagesManager struct {
	window int
}

func NewMessagesManager(window int) *MessagesManager {
	if window <= 0 {
		window = 20
	}
	return &MessagesManager{window: window}
}

// Window returns the last messages of the conversation, the current user
// message included, capped at the configured size.
func (mm *MessagesManager) Window(state *model.ConversationState, current string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(state.Messages)+1)
	for _, m := range state.Messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		switch m.Role {
		case model.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Text))
		case model.RoleAgent:
			msgs = append(msgs, schema.AssistantMessage(m.Text, nil))
		}
	}
	msgs = append(msgs, schema.UserMessage(current))
	return trimTail(msgs, mm.window)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
