package common

import "fmt"

// FormatError reports LLM output that could not be parsed into the expected
// JSON shape.
type FormatError struct {
	Raw string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unparseable model output: %v", e.Err)
	}
	return "unparseable model output"
}

func (e *FormatError) Unwrap() error { return e.Err }

// RetrievalError wraps a graph store or vector index failure during retrieval.
type RetrievalError struct {
	Op     string
	Target string
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s %q failed: %v", e.Op, e.Target, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// IngestionCommitError wraps a failed commit of one graph document.
type IngestionCommitError struct {
	Source  string
	ChunkID string
	Err     error
}

func (e *IngestionCommitError) Error() string {
	return fmt.Sprintf("commit of chunk %s from %q failed: %v", e.ChunkID, e.Source, e.Err)
}

func (e *IngestionCommitError) Unwrap() error { return e.Err }

// DuplicateSourceError signals that a source was already ingested. It is
// informational and never fails an ingestion.
type DuplicateSourceError struct {
	Source string
}

func (e *DuplicateSourceError) Error() string {
	return fmt.Sprintf("source %q already ingested", e.Source)
}
