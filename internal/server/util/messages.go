package util

import (
	"errors"
	"strings"

	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
)

// Message is one chat message as sent by the web client.
type Message struct {
	Type string `json:"type" validate:"required"`
	Text string `json:"text"`
}

var ErrNoQuestion = errors.New("no user message in conversation")

// Role maps a client message type onto an LLM role. Unknown types are
// returned lower-cased and unchanged.
func Role(msgType string) string {
	switch t := strings.ToLower(strings.TrimSpace(msgType)); t {
	case "ai", "bot", ai.RoleAssistant:
		return ai.RoleAssistant
	case "human", ai.RoleUser:
		return ai.RoleUser
	default:
		return t
	}
}

// Conversation is a client message list split into its parts.
type Conversation struct {
	System   string
	History  []common.ChatTurn
	Question string
}

// ParseConversation drops trailing empty assistant placeholders, takes the
// last user message as the question and pairs the earlier user and assistant
// messages into turns. System messages are joined with a newline.
func ParseConversation(msgs []Message) (Conversation, error) {
	end := len(msgs)
	for end > 0 && Role(msgs[end-1].Type) == ai.RoleAssistant && strings.TrimSpace(msgs[end-1].Text) == "" {
		end--
	}
	msgs = msgs[:end]

	last := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if Role(msgs[i].Type) == ai.RoleUser {
			last = i
			break
		}
	}
	if last == -1 {
		return Conversation{}, ErrNoQuestion
	}

	var conv Conversation
	var system []string
	var pending *common.ChatTurn
	flush := func() {
		if pending != nil {
			conv.History = append(conv.History, *pending)
			pending = nil
		}
	}

	for _, m := range msgs[:last] {
		switch Role(m.Type) {
		case ai.RoleSystem:
			if strings.TrimSpace(m.Text) != "" {
				system = append(system, m.Text)
			}
		case ai.RoleUser:
			flush()
			pending = &common.ChatTurn{Human: m.Text}
		case ai.RoleAssistant:
			if pending == nil {
				pending = &common.ChatTurn{}
			} else if pending.Assistant != "" {
				pending.Assistant += "\n"
			}
			pending.Assistant += m.Text
		}
	}
	flush()

	// a system message may also follow the question
	for _, m := range msgs[last+1:] {
		if Role(m.Type) == ai.RoleSystem && strings.TrimSpace(m.Text) != "" {
			system = append(system, m.Text)
		}
	}

	conv.System = strings.Join(system, "\n")
	conv.Question = msgs[last].Text
	return conv, nil
}
