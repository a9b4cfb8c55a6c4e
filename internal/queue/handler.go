package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/internal/storage"
	"github.com/graphrag-chat/backend/pkg/logger"
)

// Handle dispatches a message body by the queue it arrived on.
func Handle(ctx context.Context, a *app.App, queueName string, body []byte) error {
	switch queueName {
	case IngestQueue:
		return ProcessIngestMessage(ctx, a, body)
	case DeleteQueue:
		return ProcessDeleteMessage(ctx, a, body)
	}
	return fmt.Errorf("no handler for queue %s", queueName)
}

// ProcessIngestMessage indexes and graph-ingests a stored file. A file that
// was deleted before the job ran is not an error.
func ProcessIngestMessage(ctx context.Context, a *app.App, body []byte) error {
	job, err := app.ParseJob(body)
	if err != nil {
		return err
	}
	logger.Info("[Queue] Ingesting", "source", job.SourceKey, "correlation_id", job.CorrelationID)

	err = a.ProcessStored(ctx, job.SourceKey, true)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Warn("[Queue] Stored file vanished, dropping job", "source", job.SourceKey, "correlation_id", job.CorrelationID)
		return nil
	}
	return err
}

func ProcessDeleteMessage(ctx context.Context, a *app.App, body []byte) error {
	job, err := app.ParseJob(body)
	if err != nil {
		return err
	}
	logger.Info("[Queue] Removing", "source", job.FileName, "correlation_id", job.CorrelationID)
	return a.RemoveSource(ctx, job.FileName)
}
