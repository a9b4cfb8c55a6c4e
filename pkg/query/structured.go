package query

import (
	"context"
	"strings"
	"time"

	"github.com/graphrag-chat/backend/internal/metrics"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/fulltext"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/store"
)

const (
	DefaultMatchLimit  = 2
	DefaultTripleLimit = 10
)

// StructuredRetriever renders the graph neighbourhood of the entities named
// in a question as "A - R -> B" lines.
type StructuredRetriever struct {
	entities *EntityExtractor
	store    store.GraphStore
	builder  fulltext.Builder
	recorder metrics.Recorder

	matchLimit  int
	tripleLimit int
	maxRetries  int
	timeout     time.Duration
}

type NewStructuredRetrieverParams struct {
	Entities *EntityExtractor
	Store    store.GraphStore
	Recorder metrics.Recorder

	// Fuzzy lets every query token match within two edits.
	Fuzzy       bool
	MatchLimit  int
	TripleLimit int
	MaxRetries  int
	Timeout     time.Duration
}

func NewStructuredRetriever(params NewStructuredRetrieverParams) *StructuredRetriever {
	r := &StructuredRetriever{
		entities:    params.Entities,
		store:       params.Store,
		builder:     fulltext.NewBuilder(params.Store.Dialect(), params.Fuzzy),
		recorder:    metrics.OrNop(params.Recorder),
		matchLimit:  params.MatchLimit,
		tripleLimit: params.TripleLimit,
		maxRetries:  params.MaxRetries,
		timeout:     params.Timeout,
	}
	if r.matchLimit <= 0 {
		r.matchLimit = DefaultMatchLimit
	}
	if r.tripleLimit <= 0 {
		r.tripleLimit = DefaultTripleLimit
	}
	if r.maxRetries <= 0 {
		r.maxRetries = DefaultMaxRetries
	}
	if r.timeout == 0 {
		r.timeout = DefaultStoreTimeout
	}
	return r
}

// Retrieve never fails. An entity whose lookup keeps failing is logged and
// contributes nothing; so does an entity that has no searchable characters.
func (r *StructuredRetriever) Retrieve(ctx context.Context, question string) string {
	var lines []string
	for _, entity := range r.entities.ExtractWithRetry(ctx, question) {
		q := r.builder.Build(entity)
		if q == "" {
			logger.Debug("[Query] Skipping entity without searchable text", "entity", entity)
			continue
		}
		for _, t := range r.neighborhood(ctx, entity, q) {
			lines = append(lines, t.String())
		}
	}

	record(ctx, TraceEvent{Kind: TraceEventTriples, Triples: lines})
	return strings.Join(lines, "\n")
}

func (r *StructuredRetriever) neighborhood(ctx context.Context, entity, q string) []common.Triple {
	return util.Attempt(ctx, r.maxRetries,
		func(ctx context.Context) ([]common.Triple, error) {
			r.recorder.RetrievalAttempt(metrics.StageStructured)
			triples, err := util.WithTimeout(ctx, r.timeout, func(ctx context.Context) ([]common.Triple, error) {
				return r.store.QueryNeighborhood(ctx, q, r.matchLimit, r.tripleLimit)
			})
			if err != nil {
				r.recorder.RetrievalFailure(metrics.StageStructured)
				return nil, &common.RetrievalError{Op: "neighborhood", Target: entity, Err: err}
			}
			return triples, nil
		},
		func(err error) []common.Triple {
			logger.Warn("[Query] Graph lookup failed", "entity", entity, "query", q, "err", err)
			return nil
		},
	)
}
