// Package app wires configuration into the running components shared by the
// server, the worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/graphrag-chat/backend/internal/metrics"
	"github.com/graphrag-chat/backend/internal/storage"
	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/ai/ollama"
	"github.com/graphrag-chat/backend/pkg/ai/openai"
	"github.com/graphrag-chat/backend/pkg/chunk"
	"github.com/graphrag-chat/backend/pkg/graph"
	"github.com/graphrag-chat/backend/pkg/leaselock"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/query"
	"github.com/graphrag-chat/backend/pkg/store"
	"github.com/graphrag-chat/backend/pkg/store/falkordb"
	"github.com/graphrag-chat/backend/pkg/store/memory"
	"github.com/graphrag-chat/backend/pkg/store/neo4j"
	"github.com/graphrag-chat/backend/pkg/vector"
	"github.com/graphrag-chat/backend/pkg/vector/local"
	"github.com/graphrag-chat/backend/pkg/vector/pgvec"
)

type App struct {
	Config Config

	AI        ai.GraphAIClient
	Store     store.GraphStore
	Graph     *graph.GraphClient
	Vector    vector.Index // nil when VECTOR_BACKEND=none
	Retriever *query.HybridRetriever
	Files     storage.FileStore
	Locks     leaselock.Locker
	Recorder  metrics.Recorder
	// Metrics is nil when a custom recorder was injected.
	Metrics *metrics.Prometheus

	publisher Publisher
	closers   []func(context.Context) error
	bg        sync.WaitGroup
}

type options struct {
	ai        ai.GraphAIClient
	store     store.GraphStore
	index     vector.Index
	indexSet  bool
	files     storage.FileStore
	recorder  metrics.Recorder
	locker    leaselock.Locker
	publisher Publisher
}

type Option func(*options)

func WithAIClient(c ai.GraphAIClient) Option {
	return func(o *options) { o.ai = c }
}

func WithGraphStore(s store.GraphStore) Option {
	return func(o *options) { o.store = s }
}

// WithVectorIndex replaces the configured index. A nil index disables
// unstructured retrieval.
func WithVectorIndex(i vector.Index) Option {
	return func(o *options) { o.index, o.indexSet = i, true }
}

func WithFileStore(fs storage.FileStore) Option {
	return func(o *options) { o.files = fs }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func WithLocker(l leaselock.Locker) Option {
	return func(o *options) { o.locker = l }
}

func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// New connects every backend named by cfg. Components passed as options are
// used as-is and are not closed by Close.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, publisher: o.publisher}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	a.Recorder = o.recorder
	if a.Recorder == nil {
		a.Metrics = metrics.NewPrometheus()
		a.Recorder = a.Metrics
	}

	a.AI = o.ai
	if a.AI == nil {
		client, err := newAIClient(cfg.AI)
		if err != nil {
			return nil, err
		}
		a.AI = client
	}

	a.Store = o.store
	if a.Store == nil {
		st, err := newGraphStore(ctx, cfg.Graph)
		if err != nil {
			return nil, err
		}
		a.Store = st
		a.closers = append(a.closers, st.Close)
	}

	splitter, err := chunk.New(cfg.Ingest.Splitter, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("invalid ingestion splitter: %w", err)
	}
	a.Graph, err = graph.NewGraphClient(graph.NewGraphClientParams{
		AIClient:     a.AI,
		Store:        a.Store,
		Splitter:     splitter,
		Recorder:     a.Recorder,
		Workers:      cfg.Ingest.Workers,
		MaxRetries:   cfg.Ingest.MaxRetries,
		LLMTimeout:   cfg.LLMTimeout,
		StoreTimeout: cfg.StoreTimeout,
	})
	if err != nil {
		return nil, err
	}

	if o.indexSet {
		a.Vector = o.index
	} else {
		index, err := newVectorIndex(ctx, cfg.Vector, a.AI)
		if err != nil {
			return nil, err
		}
		if index != nil {
			a.Vector = index
			a.closers = append(a.closers, func(context.Context) error { return index.Close() })
			if err := index.Load(ctx); err != nil {
				return nil, fmt.Errorf("failed to load vector index: %w", err)
			}
		}
	}

	a.Retriever, err = newRetriever(cfg, a.AI, a.Store, a.Vector, a.Recorder)
	if err != nil {
		return nil, err
	}

	a.Files = o.files
	if a.Files == nil {
		fs, err := newFileStore(ctx, cfg.Server)
		if err != nil {
			return nil, err
		}
		a.Files = fs
	}

	a.Locks = o.locker
	if a.Locks == nil {
		if cfg.LockRedisURL != "" {
			lc, err := leaselock.NewFromURL(ctx, cfg.LockRedisURL)
			if err != nil {
				return nil, fmt.Errorf("failed to connect lock redis: %w", err)
			}
			a.Locks = lc
			a.closers = append(a.closers, func(context.Context) error { return lc.Close() })
		} else {
			a.Locks = leaselock.NewLocal()
		}
	}

	ok = true
	return a, nil
}

// Close waits for background ingestion and releases owned backends in
// reverse order.
func (a *App) Close(ctx context.Context) error {
	a.bg.Wait()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newAIClient(cfg AIConfig) (ai.GraphAIClient, error) {
	switch cfg.Adapter {
	case AdapterOllama:
		return ollama.NewGraphOllamaClient(ollama.NewGraphOllamaClientParams{
			ChatModel:             cfg.ChatModel,
			ExtractionModel:       cfg.ExtractModel,
			EmbeddingModel:        cfg.EmbedModel,
			Temperature:           cfg.Temperature,
			Dimensions:            cfg.Dimensions,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.ChatKey,
			MaxConcurrentRequests: cfg.ParallelRequests,
		})
	default:
		return openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
			ChatModel:             cfg.ChatModel,
			ExtractionModel:       cfg.ExtractModel,
			EmbeddingModel:        cfg.EmbedModel,
			Temperature:           cfg.Temperature,
			Dimensions:            cfg.Dimensions,
			ChatURL:               cfg.ChatURL,
			ChatKey:               cfg.ChatKey,
			EmbeddingURL:          cfg.EmbedURL,
			EmbeddingKey:          cfg.EmbedKey,
			MaxConcurrentRequests: cfg.ParallelRequests,
		}), nil
	}
}

func newGraphStore(ctx context.Context, cfg GraphConfig) (store.GraphStore, error) {
	switch cfg.Backend {
	case GraphMemory:
		logger.Warn("[App] Using the in-memory graph store, data is lost on exit")
		return memory.New(), nil
	case GraphFalkorDB:
		return falkordb.NewFalkorDBStore(ctx, cfg.FalkorDBURL)
	default:
		return neo4j.NewNeo4jStore(ctx, neo4j.NewNeo4jStoreParams{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUsername,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
	}
}

// newVectorIndex returns nil when the index is disabled.
func newVectorIndex(ctx context.Context, cfg VectorConfig, embedder ai.Embedder) (vector.Index, error) {
	embed := vector.EmbedOptions{BatchSize: cfg.BatchSize, Parallel: cfg.Parallel}
	switch cfg.Backend {
	case VectorNone:
		return nil, nil
	case VectorPgvector:
		pool, err := pgvec.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pgvec.NewPgvectorIndex(pool, pgvec.NewPgvectorIndexParams{Embedder: embedder, Embed: embed}), nil
	default:
		return local.NewLocalIndex(local.NewLocalIndexParams{Path: cfg.Path, Embedder: embedder, Embed: embed})
	}
}

func newRetriever(cfg Config, client ai.GraphAIClient, st store.GraphStore, index vector.Index, rec metrics.Recorder) (*query.HybridRetriever, error) {
	structured := query.NewStructuredRetriever(query.NewStructuredRetrieverParams{
		Entities: query.NewEntityExtractor(query.NewEntityExtractorParams{
			AIClient:   client,
			MaxRetries: cfg.Ingest.MaxRetries,
			Timeout:    cfg.LLMTimeout,
			Recorder:   rec,
		}),
		Store:       st,
		Recorder:    rec,
		Fuzzy:       cfg.Graph.Fuzzy,
		MatchLimit:  cfg.Graph.MatchLimit,
		TripleLimit: cfg.Graph.TripleLimit,
		MaxRetries:  cfg.Ingest.MaxRetries,
		Timeout:     cfg.StoreTimeout,
	})

	var unstructured *query.UnstructuredRetriever
	if index != nil {
		unstructured = query.NewUnstructuredRetriever(index, cfg.Vector.TopK, cfg.StoreTimeout)
	}

	return query.NewHybridRetriever(query.NewHybridRetrieverParams{
		Condenser:    query.NewCondenser(client, cfg.LLMTimeout, rec),
		Structured:   structured,
		Unstructured: unstructured,
		Recorder:     rec,
		MaxRetries:   cfg.Ingest.MaxRetries,
	})
}

func newFileStore(ctx context.Context, cfg ServerConfig) (storage.FileStore, error) {
	if cfg.UploadBackend == UploadS3 {
		return storage.NewS3Store(ctx, cfg.S3)
	}
	return storage.NewLocalStore(cfg.UploadDir)
}
