// Package local is an in-process vector index persisted to Badger.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/vector"

	"github.com/dgraph-io/badger/v4"
)

var chunkPrefix = []byte("chunk/")

// NewLocalIndexParams configures a local index.
type NewLocalIndexParams struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Embedder ai.Embedder
	Embed    vector.EmbedOptions
}

// Index keeps all entries in memory and scans them on every query. Save
// snapshots the entries into Badger, Load replaces memory with the snapshot.
type Index struct {
	mu      sync.RWMutex
	entries []vector.Entry

	db       *badger.DB
	embedder ai.Embedder
	embed    vector.EmbedOptions
}

func NewLocalIndex(params NewLocalIndexParams) (*Index, error) {
	if params.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	var opts badger.Options
	if params.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if params.Path == "" {
			return nil, errors.New("path is required for a persistent index")
		}
		if err := os.MkdirAll(params.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create index directory %s: %w", params.Path, err)
		}
		opts = badger.DefaultOptions(params.Path)
	}

	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Index{db: db, embedder: params.Embedder, embed: params.Embed}, nil
}

func (i *Index) TopK(ctx context.Context, query string, k int) ([]common.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	q, err := i.embedder.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	return vector.Rank(q, i.entries, k), nil
}

func (i *Index) Add(ctx context.Context, path string, chunkSize, overlap int) error {
	source, entries, err := vector.EmbedFile(ctx, i.embedder, path, chunkSize, overlap, i.embed)
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.entries = slices.DeleteFunc(i.entries, func(e vector.Entry) bool { return e.Source == source })
	i.entries = append(i.entries, entries...)
	i.mu.Unlock()

	logger.Debug("[Vector] Indexed file", "source", source, "chunks", len(entries))
	return nil
}

func (i *Index) Delete(_ context.Context, path string) error {
	source := filepath.Base(path)
	i.mu.Lock()
	i.entries = slices.DeleteFunc(i.entries, func(e vector.Entry) bool { return e.Source == source })
	i.mu.Unlock()
	return nil
}

func (i *Index) Sources(context.Context) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []string
	for _, e := range i.entries {
		if !slices.Contains(out, e.Source) {
			out = append(out, e.Source)
		}
	}
	slices.Sort(out)
	return out, nil
}

func entryKey(e vector.Entry) []byte {
	return fmt.Appendf(nil, "%s%s/%08d/%s", chunkPrefix, e.Source, e.Index, e.ID)
}

// Save replaces the persisted snapshot with the current entries.
func (i *Index) Save(context.Context) error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if err := i.db.DropPrefix(chunkPrefix); err != nil {
		return fmt.Errorf("failed to drop old snapshot: %w", err)
	}

	wb := i.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range i.entries {
		val, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := wb.Set(entryKey(e), val); err != nil {
			return fmt.Errorf("failed to write chunk %s: %w", e.ID, err)
		}
	}
	return wb.Flush()
}

// Load replaces the in-memory entries with the persisted snapshot. An empty
// database yields an empty index.
func (i *Index) Load(context.Context) error {
	var entries []vector.Entry
	err := i.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(chunkPrefix); it.ValidForPrefix(chunkPrefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var e vector.Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("corrupt entry %s: %w", bytes.TrimPrefix(item.Key(), chunkPrefix), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	slices.SortStableFunc(entries, func(a, b vector.Entry) int {
		if c := strings.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return a.Index - b.Index
	})

	i.mu.Lock()
	i.entries = entries
	i.mu.Unlock()
	return nil
}

// Len reports the number of indexed chunks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func (i *Index) Close() error {
	return i.db.Close()
}

var _ vector.Index = (*Index)(nil)
