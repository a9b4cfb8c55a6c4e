package graph

import (
	"context"
	"time"

	"github.com/graphrag-chat/backend/internal/metrics"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

type chunkResult struct {
	chunk common.Chunk
	doc   common.GraphDocument
	err   error
}

type extraction struct {
	docs   []common.GraphDocument
	failed int
}

// extractChunks runs graph extraction over chunks in waves of g.workers.
// Workers hand their results to a single collector goroutine which owns the
// buffer; a wave is joined before the next one starts. A chunk that keeps
// failing is logged and counted. Only cancellation of ctx is returned.
func (g *GraphClient) extractChunks(ctx context.Context, chunks []common.Chunk) (extraction, error) {
	results := make(chan chunkResult)
	collected := make(chan extraction)

	go func() {
		var ex extraction
		for r := range results {
			if r.err != nil {
				ex.failed++
				g.recorder.IngestChunk(metrics.ChunkFailed)
				logger.Warn("[Graph] Skipping chunk after failed extraction",
					"source", r.chunk.Source, "chunk", r.chunk.Index, "err", r.err)
				continue
			}
			ex.docs = append(ex.docs, r.doc)
			g.recorder.IngestChunk(metrics.ChunkExtracted)
		}
		collected <- ex
	}()

	err := g.runWaves(ctx, chunks, results)
	close(results)
	ex := <-collected
	return ex, err
}

func (g *GraphClient) runWaves(ctx context.Context, chunks []common.Chunk, results chan<- chunkResult) error {
	for start := 0; start < len(chunks); start += g.workers {
		end := min(start+g.workers, len(chunks))
		logger.Debug("[Graph] Starting wave", "from", start, "to", end, "total", len(chunks))

		eg, gCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.workers)
		for _, c := range chunks[start:end] {
			eg.Go(func() error {
				r := g.extractChunk(gCtx, c)
				if err := gCtx.Err(); err != nil {
					return err
				}
				results <- r
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (g *GraphClient) extractChunk(ctx context.Context, c common.Chunk) chunkResult {
	return util.Attempt(ctx, g.maxRetries,
		func(ctx context.Context) (chunkResult, error) {
			started := time.Now()
			doc, err := util.WithTimeout(ctx, g.llmTimeout, func(ctx context.Context) (common.GraphDocument, error) {
				return g.extractor.Extract(ctx, c)
			})
			g.recorder.ObserveLLMCall("graph_extract", time.Since(started))
			if err != nil {
				logger.Debug("[Graph] Extraction attempt failed", "chunk", c.ID, "err", err)
				return chunkResult{}, err
			}
			return chunkResult{chunk: c, doc: doc}, nil
		},
		func(err error) chunkResult {
			return chunkResult{chunk: c, err: err}
		},
	)
}
