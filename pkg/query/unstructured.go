package query

import (
	"context"
	"time"

	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/vector"
)

const DefaultTopK = 3

// UnstructuredRetriever fetches the chunks closest to a question.
type UnstructuredRetriever struct {
	index   vector.Index
	k       int
	timeout time.Duration
}

func NewUnstructuredRetriever(index vector.Index, k int, timeout time.Duration) *UnstructuredRetriever {
	if k <= 0 {
		k = DefaultTopK
	}
	if timeout == 0 {
		timeout = DefaultStoreTimeout
	}
	return &UnstructuredRetriever{index: index, k: k, timeout: timeout}
}

// Retrieve returns up to k chunks, best first. Index failures are returned
// as *common.RetrievalError.
func (u *UnstructuredRetriever) Retrieve(ctx context.Context, question string) ([]common.SearchResult, error) {
	results, err := util.WithTimeout(ctx, u.timeout, func(ctx context.Context) ([]common.SearchResult, error) {
		return u.index.TopK(ctx, question, u.k)
	})
	if err != nil {
		return nil, &common.RetrievalError{Op: "top_k", Target: question, Err: err}
	}

	sources := make([]string, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Source)
	}
	record(ctx, TraceEvent{Kind: TraceEventChunks, Sources: sources})
	return results, nil
}
