// Package query implements hybrid retrieval: a chat turn is condensed into a
// standalone question, entities found in it are looked up in the knowledge
// graph and, optionally, similar chunks are fetched from a vector index. The
// result is rendered into the context of the answer prompt.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/graphrag-chat/backend/internal/metrics"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/store"
)

const (
	DefaultMaxRetries   = 3
	DefaultLLMTimeout   = 60 * time.Second
	DefaultStoreTimeout = 15 * time.Second
)

// EntityExtractor asks the LLM for the person and organization names in a
// question.
type EntityExtractor struct {
	client     ai.GraphAIClient
	maxRetries int
	timeout    time.Duration
	recorder   metrics.Recorder
	opts       []ai.GenerateOption
}

type NewEntityExtractorParams struct {
	AIClient   ai.GraphAIClient
	MaxRetries int
	Timeout    time.Duration
	Recorder   metrics.Recorder
	Options    []ai.GenerateOption
}

func NewEntityExtractor(params NewEntityExtractorParams) *EntityExtractor {
	e := &EntityExtractor{
		client:     params.AIClient,
		maxRetries: params.MaxRetries,
		timeout:    params.Timeout,
		recorder:   metrics.OrNop(params.Recorder),
		opts:       params.Options,
	}
	if e.maxRetries <= 0 {
		e.maxRetries = DefaultMaxRetries
	}
	if e.timeout == 0 {
		e.timeout = DefaultLLMTimeout
	}
	return e
}

// Extract performs a single attempt. The answer must be a JSON object, bare
// or inside a ```json block, whose "res" key holds a list of strings.
// Anything else is a *common.FormatError. Blank names are dropped and
// duplicates removed in first-seen order.
func (e *EntityExtractor) Extract(ctx context.Context, question string) ([]string, error) {
	msgs := []ai.ChatMessage{
		{Role: ai.RoleSystem, Message: ai.EntityExtractSystemPrompt},
		{Role: ai.RoleUser, Message: fmt.Sprintf(ai.EntityExtractUserPrompt, question)},
	}

	started := time.Now()
	raw, err := e.client.GenerateChat(ctx, msgs, e.opts...)
	e.recorder.ObserveLLMCall("entity_extract", time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("failed to extract entities: %w", err)
	}

	return parseEntities(raw)
}

func parseEntities(raw string) ([]string, error) {
	var obj map[string]json.RawMessage
	if err := ai.ParseJSONObject(raw, &obj); err != nil {
		return nil, err
	}

	res, ok := obj["res"]
	if !ok {
		return nil, &common.FormatError{Raw: raw, Err: errors.New(`missing key "res"`)}
	}
	var names []string
	if bytes.Equal(bytes.TrimSpace(res), []byte("null")) {
		return nil, &common.FormatError{Raw: raw, Err: errors.New(`"res" is null`)}
	}
	if err := json.Unmarshal(res, &names); err != nil {
		return nil, &common.FormatError{Raw: raw, Err: fmt.Errorf(`"res" is not a list of strings: %w`, err)}
	}

	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return store.DedupeStrings(names), nil
}

// ExtractWithRetry never fails: after MaxRetries failed attempts the last
// error is logged and no entities are returned.
func (e *EntityExtractor) ExtractWithRetry(ctx context.Context, question string) []string {
	entities := util.Attempt(ctx, e.maxRetries,
		func(ctx context.Context) ([]string, error) {
			e.recorder.RetrievalAttempt(metrics.StageEntity)
			names, err := util.WithTimeout(ctx, e.timeout, func(ctx context.Context) ([]string, error) {
				return e.Extract(ctx, question)
			})
			if err != nil {
				e.recorder.RetrievalFailure(metrics.StageEntity)
				logger.Debug("[Query] Entity extraction attempt failed", "err", err)
			}
			return names, err
		},
		func(err error) []string {
			logger.Warn("[Query] Giving up on entity extraction", "question", question, "err", err)
			return []string{}
		},
	)
	record(ctx, TraceEvent{Kind: TraceEventEntities, Entities: entities})
	return entities
}
