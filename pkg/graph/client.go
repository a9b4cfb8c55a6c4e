// Package graph builds the knowledge graph from documents and removes it
// again. Chunks are turned into graph documents by an LLM in bounded waves
// and written to a store.GraphStore one document at a time.
package graph

import (
	"errors"
	"time"

	"github.com/graphrag-chat/backend/internal/metrics"
	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/chunk"
	"github.com/graphrag-chat/backend/pkg/store"
)

const (
	DefaultWorkers      = 4
	DefaultMaxRetries   = 3
	DefaultLLMTimeout   = 60 * time.Second
	DefaultStoreTimeout = 15 * time.Second
)

// GraphClient runs ingestion and deletion against one graph store.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	store     store.GraphStore
	splitter  chunk.Splitter
	extractor *Extractor
	recorder  metrics.Recorder

	workers      int
	maxRetries   int
	llmTimeout   time.Duration
	storeTimeout time.Duration
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// Workers bounds the number of chunks extracted concurrently in one wave.
// MaxRetries is the number of attempts per chunk extraction and per presence
// check of a source. Zero values select the package defaults; a nil Splitter
// selects the character splitter with its default sizes.
type NewGraphClientParams struct {
	AIClient ai.GraphAIClient
	Store    store.GraphStore
	Splitter chunk.Splitter
	Recorder metrics.Recorder

	Workers      int
	MaxRetries   int
	LLMTimeout   time.Duration
	StoreTimeout time.Duration

	// ExtractOptions are passed to every graph extraction request, for
	// example ai.WithModel for a dedicated extraction model.
	ExtractOptions []ai.GenerateOption
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		AIClient: aiClient,
//		Store:    graphStore,
//		Workers:  8,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	report, err := client.Ingest(ctx, "docs/handbook.txt")
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	if params.AIClient == nil {
		return nil, errors.New("graph client requires an AI client")
	}
	if params.Store == nil {
		return nil, errors.New("graph client requires a graph store")
	}

	splitter := params.Splitter
	if splitter == nil {
		s, err := chunk.New(chunk.ModeCharacter, 0, -1)
		if err != nil {
			return nil, err
		}
		splitter = s
	}

	g := &GraphClient{
		store:        params.Store,
		splitter:     splitter,
		extractor:    NewExtractor(params.AIClient, params.ExtractOptions...),
		recorder:     metrics.OrNop(params.Recorder),
		workers:      params.Workers,
		maxRetries:   params.MaxRetries,
		llmTimeout:   params.LLMTimeout,
		storeTimeout: params.StoreTimeout,
	}
	if g.workers <= 0 {
		g.workers = DefaultWorkers
	}
	if g.maxRetries <= 0 {
		g.maxRetries = DefaultMaxRetries
	}
	if g.llmTimeout == 0 {
		g.llmTimeout = DefaultLLMTimeout
	}
	if g.storeTimeout == 0 {
		g.storeTimeout = DefaultStoreTimeout
	}

	return g, nil
}

// Store returns the graph store the client writes to.
func (g *GraphClient) Store() store.GraphStore {
	return g.store
}
