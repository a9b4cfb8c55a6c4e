package query

import (
	"context"
	"errors"
	"strings"

	"github.com/graphrag-chat/backend/internal/metrics"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// HybridRetriever builds the retrieval context of a chat turn from the
// knowledge graph and, when configured, the vector index.
type HybridRetriever struct {
	condenser    *Condenser
	structured   *StructuredRetriever
	unstructured *UnstructuredRetriever
	recorder     metrics.Recorder
	maxRetries   int
}

// NewHybridRetrieverParams configures a HybridRetriever. Unstructured may be
// nil to answer from the graph only.
type NewHybridRetrieverParams struct {
	Condenser    *Condenser
	Structured   *StructuredRetriever
	Unstructured *UnstructuredRetriever
	Recorder     metrics.Recorder
	MaxRetries   int
}

func NewHybridRetriever(params NewHybridRetrieverParams) (*HybridRetriever, error) {
	if params.Condenser == nil || params.Structured == nil {
		return nil, errors.New("hybrid retriever requires a condenser and a structured retriever")
	}
	h := &HybridRetriever{
		condenser:    params.Condenser,
		structured:   params.Structured,
		unstructured: params.Unstructured,
		recorder:     metrics.OrNop(params.Recorder),
		maxRetries:   params.MaxRetries,
	}
	if h.maxRetries <= 0 {
		h.maxRetries = DefaultMaxRetries
	}
	return h, nil
}

// AnswerContext never fails. When every attempt fails the context is empty
// and the answer is generated without augmentation. Question always holds
// the question as asked.
func (h *HybridRetriever) AnswerContext(ctx context.Context, question string, history []common.ChatTurn) common.RetrievalContext {
	rc := util.Attempt(ctx, h.maxRetries,
		func(ctx context.Context) (common.RetrievalContext, error) {
			h.recorder.RetrievalAttempt(metrics.StageHybrid)
			rc, err := h.retrieve(ctx, question, history)
			if err != nil {
				h.recorder.RetrievalFailure(metrics.StageHybrid)
				logger.Warn("[Query] Retrieval attempt failed", "err", err)
			}
			return rc, err
		},
		func(err error) common.RetrievalContext {
			logger.Error("[Query] Retrieval failed, answering without context", "err", err)
			return common.RetrievalContext{Question: question}
		},
	)
	if rc.Context == "" {
		h.recorder.ContextEmpty()
	}
	return rc
}

func (h *HybridRetriever) retrieve(ctx context.Context, question string, history []common.ChatTurn) (common.RetrievalContext, error) {
	condensed, err := h.condenser.Condense(ctx, question, history)
	if err != nil {
		return common.RetrievalContext{}, err
	}
	record(ctx, TraceEvent{Kind: TraceEventCondensed, Condensed: condensed})

	var structured string
	var chunks []common.SearchResult

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		structured = h.structured.Retrieve(gCtx, condensed)
		return nil
	})
	if h.unstructured != nil {
		g.Go(func() error {
			h.recorder.RetrievalAttempt(metrics.StageUnstructured)
			res, err := h.unstructured.Retrieve(gCtx, condensed)
			if err != nil {
				h.recorder.RetrievalFailure(metrics.StageUnstructured)
				return err
			}
			chunks = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return common.RetrievalContext{}, err
	}

	return common.RetrievalContext{
		Context:   BuildContext(structured, chunks, h.unstructured != nil),
		Question:  question,
		Condensed: condensed,
	}, nil
}

// BuildContext renders the labelled context handed to the answer prompt.
// The unstructured section is only present when the vector index is in use.
func BuildContext(structured string, chunks []common.SearchResult, withUnstructured bool) string {
	var sb strings.Builder
	sb.WriteString("Structured data:\n")
	sb.WriteString(structured)
	sb.WriteString("\n")
	if !withUnstructured {
		return sb.String()
	}
	sb.WriteString("Unstructured data:\n")
	for _, c := range chunks {
		sb.WriteString("#Document ")
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
