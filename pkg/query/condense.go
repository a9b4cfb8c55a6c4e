package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/graphrag-chat/backend/internal/metrics"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
)

// Condenser rewrites a follow-up question into a standalone one.
type Condenser struct {
	client   ai.GraphAIClient
	timeout  time.Duration
	recorder metrics.Recorder
	opts     []ai.GenerateOption
}

func NewCondenser(client ai.GraphAIClient, timeout time.Duration, recorder metrics.Recorder, opts ...ai.GenerateOption) *Condenser {
	if timeout == 0 {
		timeout = DefaultLLMTimeout
	}
	return &Condenser{client: client, timeout: timeout, recorder: metrics.OrNop(recorder), opts: opts}
}

// Condense returns question unchanged when there is no history. Otherwise
// the LLM answer, at temperature 0, is returned as is.
func (c *Condenser) Condense(ctx context.Context, question string, history []common.ChatTurn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	msgs := HistoryMessages(history)
	msgs = append(msgs, ai.ChatMessage{
		Role:    ai.RoleUser,
		Message: fmt.Sprintf(ai.CondensePrompt, RenderHistory(history), question),
	})

	opts := append([]ai.GenerateOption{ai.WithTemperature(0)}, c.opts...)
	started := time.Now()
	out, err := util.WithTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		return c.client.GenerateChat(ctx, msgs, opts...)
	})
	c.recorder.ObserveLLMCall("condense", time.Since(started))
	if err != nil {
		return "", fmt.Errorf("failed to condense question: %w", err)
	}
	return out, nil
}

// HistoryMessages turns every turn into a user and an assistant message.
func HistoryMessages(history []common.ChatTurn) []ai.ChatMessage {
	msgs := make([]ai.ChatMessage, 0, len(history)*2+1)
	for _, turn := range history {
		msgs = append(msgs,
			ai.ChatMessage{Role: ai.RoleUser, Message: turn.Human},
			ai.ChatMessage{Role: ai.RoleAssistant, Message: turn.Assistant},
		)
	}
	return msgs
}

// RenderHistory renders the history as "Human: ..." and "Assistant: ..."
// lines.
func RenderHistory(history []common.ChatTurn) string {
	var sb strings.Builder
	for i, turn := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Human: ")
		sb.WriteString(turn.Human)
		sb.WriteString("\nAssistant: ")
		sb.WriteString(turn.Assistant)
	}
	return sb.String()
}
