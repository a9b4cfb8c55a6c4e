package graph

import (
	"context"
	"fmt"

	"github.com/graphrag-chat/backend/internal/metrics"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/chunk"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/loader"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/store"
)

// IngestReport summarizes one ingestion. Failed counts chunks whose
// extraction or commit failed.
type IngestReport struct {
	Source    string `json:"source"`
	Chunks    int    `json:"chunks"`
	Extracted int    `json:"extracted"`
	Committed int    `json:"committed"`
	Failed    int    `json:"failed"`
	Skipped   bool   `json:"skipped"`
	// Reason is a *common.DuplicateSourceError when Skipped is set.
	Reason error `json:"-"`
}

var commitOptions = store.AddOptions{BaseEntityLabel: true, IncludeSource: true}

// Ingest adds input to the graph. input is read as a file when it names an
// existing regular file and used as literal text otherwise.
//
// A source that is already present in the store is skipped. The presence
// check is retried; when it keeps failing nothing is written and an error is
// returned. Extraction and commit failures are logged and counted in the
// report. Otherwise the returned error is only set when the input cannot be
// read or ctx is cancelled.
func (g *GraphClient) Ingest(ctx context.Context, input string) (IngestReport, error) {
	in, err := loader.ResolveInput(input)
	if err != nil {
		return IngestReport{}, err
	}
	report := IngestReport{Source: in.Source}

	known, err := util.RetryWithContext(ctx, g.maxRetries, func(ctx context.Context) (bool, error) {
		return util.WithTimeout(ctx, g.storeTimeout, func(ctx context.Context) (bool, error) {
			return g.store.HasDocument(ctx, in.Source)
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		logger.Error("[Ingest] Could not check for known source", "source", in.Source, "err", err)
		return report, fmt.Errorf("could not check whether %s is already ingested: %w", in.Source, err)
	}
	if known {
		dup := &common.DuplicateSourceError{Source: in.Source}
		logger.Info("[Ingest] Skipping known source", "source", in.Source, "err", dup)
		g.recorder.Duplicate()
		report.Skipped = true
		report.Reason = dup
		return report, nil
	}

	chunks, err := chunk.Chunks(in.Source, in.Text, g.splitter)
	if err != nil {
		return report, err
	}
	report.Chunks = len(chunks)
	logger.Info("[Ingest] Extracting graph", "source", in.Source, "chunks", len(chunks), "workers", g.workers)

	ex, err := g.extractChunks(ctx, chunks)
	report.Extracted = len(ex.docs)
	report.Failed = ex.failed
	if err != nil {
		return report, fmt.Errorf("ingestion of %s interrupted: %w", in.Source, err)
	}

	for _, doc := range ex.docs {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingestion of %s interrupted: %w", in.Source, err)
		}
		if err := g.commit(ctx, doc); err != nil {
			report.Failed++
			g.recorder.CommitFailure()
			logger.Error("[Ingest] Failed to commit graph document",
				"err", err, "nodes", doc.Nodes, "relationships", doc.Relationships)
			continue
		}
		report.Committed++
		g.recorder.IngestChunk(metrics.ChunkCommitted)
	}

	logger.Info("[Ingest] Finished",
		"source", report.Source,
		"chunks", report.Chunks,
		"committed", report.Committed,
		"failed", report.Failed,
	)
	return report, nil
}

func (g *GraphClient) commit(ctx context.Context, doc common.GraphDocument) error {
	err := util.WithTimeoutErr(ctx, g.storeTimeout, func(ctx context.Context) error {
		return g.store.AddGraphDocuments(ctx, []common.GraphDocument{doc}, commitOptions)
	})
	if err != nil {
		return &common.IngestionCommitError{Source: doc.Source.Source, ChunkID: doc.Source.ID, Err: err}
	}
	return nil
}
