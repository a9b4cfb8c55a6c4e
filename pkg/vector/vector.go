// Package vector defines the chunk index used for unstructured retrieval.
package vector

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/chunk"
	"github.com/graphrag-chat/backend/pkg/common"
)

// Default chunking for vector indexing.
const (
	DefaultChunkSize    = 128
	DefaultChunkOverlap = 16
)

// Index stores embedded chunks of source files and answers nearest
// neighbour queries.
type Index interface {
	// TopK returns the k chunks most similar to query, best first.
	TopK(ctx context.Context, query string, k int) ([]common.SearchResult, error)
	// Add chunks and embeds the file at path. Chunks previously indexed for
	// the same base name are replaced.
	Add(ctx context.Context, path string, chunkSize, overlap int) error
	// Delete removes every chunk of the file's base name.
	Delete(ctx context.Context, path string) error
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	// Sources lists the indexed base names in sorted order.
	Sources(ctx context.Context) ([]string, error)
	Close() error
}

// Entry is one embedded chunk.
type Entry struct {
	common.Chunk
	Vector []float32 `json:"vector"`
}

// EmbedOptions tunes how chunks are embedded.
type EmbedOptions struct {
	BatchSize int
	Parallel  int
}

// EmbedFile reads the UTF-8 file at path, splits it into character chunks
// and embeds every chunk. Non-positive sizes select the defaults.
func EmbedFile(
	ctx context.Context,
	e ai.Embedder,
	path string,
	chunkSize int,
	overlap int,
	opts EmbedOptions,
) (string, []Entry, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = min(DefaultChunkOverlap, chunkSize-1)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	source := filepath.Base(path)

	splitter, err := chunk.NewCharacterSplitter(chunkSize, overlap)
	if err != nil {
		return "", nil, err
	}
	chunks, err := chunk.Chunks(source, string(content), splitter)
	if err != nil {
		return "", nil, err
	}

	inputs := make([][]byte, len(chunks))
	for i, c := range chunks {
		inputs[i] = []byte(c.Text)
	}
	vecs, err := ai.EmbedAll(ctx, e, inputs, opts.BatchSize, opts.Parallel)
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed %s: %w", source, err)
	}

	entries := make([]Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = Entry{Chunk: c, Vector: vecs[i]}
	}
	return source, entries, nil
}

// Cosine returns the cosine similarity of a and b, 0 when either is empty
// or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores entries against query and returns the k best.
func Rank(query []float32, entries []Entry, k int) []common.SearchResult {
	if k <= 0 || len(entries) == 0 {
		return nil
	}
	results := make([]common.SearchResult, len(entries))
	for i, e := range entries {
		results[i] = common.SearchResult{Text: e.Text, Score: Cosine(query, e.Vector), Source: e.Source}
	}
	slices.SortStableFunc(results, func(a, b common.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
