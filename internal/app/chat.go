package app

import (
	"context"
	"time"

	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/query"
)

type ChatRequest struct {
	// System overrides SYSTEM_PROMPT when set.
	System   string
	History  []common.ChatTurn
	Question string
	UseRAG   bool
}

// StreamAnswer starts answer generation. With UseRAG the hybrid context is
// built first, so the returned RetrievalContext is empty otherwise.
func (a *App) StreamAnswer(ctx context.Context, req ChatRequest) (<-chan ai.StreamEvent, common.RetrievalContext, error) {
	system := req.System
	if system == "" {
		system = a.Config.Server.SystemPrompt
	}

	var (
		msgs []ai.ChatMessage
		rc   common.RetrievalContext
	)
	if req.UseRAG {
		rc = a.Retriever.AnswerContext(ctx, req.Question, req.History)
		msgs = query.BuildAnswerMessages(system, req.History, rc)
	} else {
		msgs = query.BuildDirectMessages(system, req.History, req.Question)
	}

	start := time.Now()
	events, err := a.AI.GenerateChatStream(ctx, msgs)
	if err != nil {
		return nil, rc, err
	}

	out := make(chan ai.StreamEvent)
	go func() {
		defer close(out)
		defer func() { a.Recorder.ObserveLLMCall("answer", time.Since(start)) }()
		for ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				// drain so the producer can exit
				for range events {
				}
				return
			}
		}
	}()
	return out, rc, nil
}
