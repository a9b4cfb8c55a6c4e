package query

import (
	"fmt"

	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
)

// BuildAnswerMessages returns the conversation for answer generation: the
// optional system prompt, the history, and the answer prompt carrying the
// retrieval context as the final user message.
func BuildAnswerMessages(system string, history []common.ChatTurn, rc common.RetrievalContext) []ai.ChatMessage {
	msgs := make([]ai.ChatMessage, 0, len(history)*2+2)
	if system != "" {
		msgs = append(msgs, ai.ChatMessage{Role: ai.RoleSystem, Message: system})
	}
	msgs = append(msgs, HistoryMessages(history)...)
	msgs = append(msgs, ai.ChatMessage{
		Role:    ai.RoleUser,
		Message: fmt.Sprintf(ai.AnswerPrompt, rc.Context, rc.Question),
	})
	return msgs
}

// BuildDirectMessages is used when retrieval is disabled: the question is
// sent as is after the history.
func BuildDirectMessages(system string, history []common.ChatTurn, question string) []ai.ChatMessage {
	msgs := make([]ai.ChatMessage, 0, len(history)*2+2)
	if system != "" {
		msgs = append(msgs, ai.ChatMessage{Role: ai.RoleSystem, Message: system})
	}
	msgs = append(msgs, HistoryMessages(history)...)
	msgs = append(msgs, ai.ChatMessage{Role: ai.RoleUser, Message: question})
	return msgs
}
