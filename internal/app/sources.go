package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/graphrag-chat/backend/internal/storage"
	"github.com/graphrag-chat/backend/pkg/graph"
	"github.com/graphrag-chat/backend/pkg/leaselock"
	"github.com/graphrag-chat/backend/pkg/loader"
	"github.com/graphrag-chat/backend/pkg/logger"
)

var ErrNoPublisher = errors.New("ingest mode is queue but no publisher is configured")

var sourceLease = leaselock.Options{
	TTL:          10 * time.Minute,
	Wait:         true,
	WaitInterval: 250 * time.Millisecond,
	WaitJitter:   100 * time.Millisecond,
}

// withSource serializes indexing and removal of one source across goroutines
// and, with a Redis locker, across processes.
func (a *App) withSource(ctx context.Context, source string, fn func(ctx context.Context) error) error {
	return a.Locks.WithLease(ctx, "source:"+source, sourceLease, fn)
}

// IndexSource adds the file at path to the vector index and persists it. It
// is a no-op when the index is disabled.
func (a *App) IndexSource(ctx context.Context, path string) error {
	if a.Vector == nil {
		return nil
	}
	return a.withSource(ctx, filepath.Base(path), func(ctx context.Context) error {
		if err := a.Vector.Add(ctx, path, a.Config.Vector.ChunkSize, a.Config.Vector.ChunkOverlap); err != nil {
			return fmt.Errorf("failed to index %s: %w", filepath.Base(path), err)
		}
		return a.Vector.Save(ctx)
	})
}

// IngestGraph runs graph ingestion for a file path or literal text.
func (a *App) IngestGraph(ctx context.Context, input string) (graph.IngestReport, error) {
	in, err := loader.ResolveInput(input)
	if err != nil {
		return graph.IngestReport{}, err
	}

	var report graph.IngestReport
	err = a.withSource(ctx, in.Source, func(ctx context.Context) error {
		var err error
		report, err = a.Graph.Ingest(ctx, input)
		return err
	})
	if err == nil {
		logReport(report)
	}
	return report, err
}

func logReport(r graph.IngestReport) {
	if r.Skipped {
		logger.Info("[Ingest] Skipping known source", "source", r.Source, "reason", r.Reason)
		return
	}
	logger.Info("[Ingest] Finished", "source", r.Source, "chunks", r.Chunks,
		"extracted", r.Extracted, "committed", r.Committed, "failed", r.Failed)
}

// RemoveSource drops a source from the vector index and the graph.
func (a *App) RemoveSource(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("source name is empty")
	}
	source := filepath.Base(name)
	return a.withSource(ctx, source, func(ctx context.Context) error {
		if err := a.removeVectors(ctx, source); err != nil {
			return err
		}
		return a.Graph.Clear(ctx, source)
	})
}

func (a *App) removeVectors(ctx context.Context, source string) error {
	if a.Vector == nil {
		return nil
	}
	if err := a.Vector.Delete(ctx, source); err != nil {
		return fmt.Errorf("failed to remove %s from the vector index: %w", source, err)
	}
	return a.Vector.Save(ctx)
}

// ProcessStored indexes a stored file: it is downloaded if needed, added to
// the vector index and, when withGraph is set, ingested into the graph.
func (a *App) ProcessStored(ctx context.Context, name string, withGraph bool) error {
	path, cleanup, err := storage.Materialize(ctx, a.Files, name)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.IndexSource(ctx, path); err != nil {
		return err
	}
	if !withGraph {
		return nil
	}
	report, err := a.IngestGraph(ctx, path)
	if err != nil {
		return err
	}
	if report.Failed > 0 && report.Committed == 0 && report.Chunks > 0 {
		return fmt.Errorf("graph ingestion of %s failed for every chunk", report.Source)
	}
	return nil
}

// HandleUpload schedules indexing of a freshly stored file. Inline mode
// indexes vectors before returning and ingests the graph in the background
// when GRAPH_ON_UPLOAD is set. Queue mode publishes an ingest job.
func (a *App) HandleUpload(ctx context.Context, name string) error {
	if a.Config.Server.IngestMode == IngestQueue {
		return a.publish(ctx, JobIngest, name)
	}

	path, cleanup, err := storage.Materialize(ctx, a.Files, name)
	if err != nil {
		return err
	}
	if err := a.IndexSource(ctx, path); err != nil {
		cleanup()
		return err
	}
	if !a.Config.Server.GraphOnUpload {
		cleanup()
		return nil
	}

	bgCtx := context.WithoutCancel(ctx)
	a.bg.Go(func() {
		defer cleanup()
		if _, err := a.IngestGraph(bgCtx, path); err != nil {
			logger.Error("[Ingest] Background graph ingestion failed", "source", name, "err", err)
		}
	})
	return nil
}

// HandleDelete removes a stored file and everything derived from it. It
// returns storage.ErrNotFound when the file does not exist.
func (a *App) HandleDelete(ctx context.Context, name string) error {
	source, err := storage.CleanName(name)
	if err != nil {
		return err
	}
	if err := a.Files.Delete(ctx, source); err != nil {
		return err
	}

	if a.Config.Server.IngestMode == IngestQueue {
		if err := a.withSource(ctx, source, func(ctx context.Context) error {
			return a.removeVectors(ctx, source)
		}); err != nil {
			return err
		}
		return a.publish(ctx, JobDelete, source)
	}
	return a.RemoveSource(ctx, source)
}

func (a *App) publish(ctx context.Context, kind JobKind, name string) error {
	if a.publisher == nil {
		return ErrNoPublisher
	}
	job, err := NewJob(name)
	if err != nil {
		return err
	}
	if err := a.publisher.Publish(ctx, kind, job); err != nil {
		return fmt.Errorf("failed to publish %s job: %w", kind, err)
	}
	logger.Debug("[Queue] Published job", "kind", kind, "source", name, "correlation_id", job.CorrelationID)
	return nil
}

// Wait blocks until background ingestion started by HandleUpload finished.
func (a *App) Wait() {
	a.bg.Wait()
}
