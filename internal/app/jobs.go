package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type JobKind string

const (
	JobIngest JobKind = "ingest"
	JobDelete JobKind = "delete"
)

// Job is the message body exchanged with the worker. SourceKey names the
// stored file, FileName is the source name used in the graph and the index.
type Job struct {
	SourceKey     string `json:"source_key"`
	FileName      string `json:"file_name"`
	CorrelationID string `json:"correlation_id"`
}

// Publisher hands jobs to the worker.
type Publisher interface {
	Publish(ctx context.Context, kind JobKind, job Job) error
}

func NewJob(name string) (Job, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Job{}, err
	}
	return Job{SourceKey: name, FileName: name, CorrelationID: id}, nil
}

// ParseJob decodes a job body and fills FileName from SourceKey when absent.
func ParseJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("invalid job message: %w", err)
	}
	if strings.TrimSpace(job.SourceKey) == "" {
		return Job{}, fmt.Errorf("invalid job message: source_key is empty")
	}
	if job.FileName == "" {
		job.FileName = job.SourceKey
	}
	return job, nil
}
