package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"unicode/utf8"

	"github.com/graphrag-chat/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultContext  = 4096
	contextHeadroom = 512
)

// contextWindow estimates the num_ctx needed for the prompt. Ollama silently
// truncates prompts longer than its default window.
func contextWindow(msgs []api.Message) int {
	tokens := contextHeadroom
	enc, err := tiktoken.GetEncoding("o200k_base")
	for _, m := range msgs {
		if err != nil {
			tokens += utf8.RuneCountInString(m.Content)
			continue
		}
		tokens += len(enc.Encode(m.Content, nil, nil))
	}
	return tokens
}

func (c *GraphOllamaClient) request(
	model string,
	messages []ai.ChatMessage,
	stream bool,
	opts []ai.GenerateOption,
) *api.ChatRequest {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       model,
		Temperature: c.temperature,
	}, opts...)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+len(messages))
	for _, sys := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: ai.RoleSystem, Content: sys})
	}
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = ai.RoleUser
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Message})
	}

	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	if n := contextWindow(msgs); n > defaultContext {
		req.Options["num_ctx"] = n
	}
	return req
}

func (c *GraphOllamaClient) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}
	c.modifyMetrics(final.Metrics)
	return final.Message.Content, nil
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *GraphOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	return c.GenerateChat(ctx, []ai.ChatMessage{{Role: ai.RoleUser, Message: prompt}}, opts...)
}

// GenerateCompletionWithFormat enforces a JSON schema and unmarshals into out.
func (c *GraphOllamaClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	rv := reflect.ValueOf(out)
	if out == nil || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	formatBytes, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return err
	}

	req := c.request(c.extractionModel, []ai.ChatMessage{{Role: ai.RoleUser, Message: prompt}}, false, opts)
	req.Format = json.RawMessage(formatBytes)

	content, err := c.chat(ctx, req)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(content, out)
}

// GenerateChat sends a multi-turn conversation and returns assistant text.
func (c *GraphOllamaClient) GenerateChat(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (string, error) {
	return c.chat(ctx, c.request(c.chatModel, messages, false, opts))
}

// GenerateChatStream streams the assistant reply incrementally.
func (c *GraphOllamaClient) GenerateChatStream(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (<-chan ai.StreamEvent, error) {
	req := c.request(c.chatModel, messages, true, opts)
	out := make(chan ai.StreamEvent, 16)

	go func() {
		defer close(out)

		err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
			if s := cr.Message.Content; s != "" {
				select {
				case out <- ai.StreamEvent{Type: ai.StreamEventContent, Content: s}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if cr.Done {
				c.modifyMetrics(cr.Metrics)
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			out <- ai.StreamEvent{Type: ai.StreamEventError, Err: err}
		}
	}()

	return out, nil
}
