package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/graphrag-chat/backend/pkg/ai/aitest"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/store"
	"github.com/graphrag-chat/backend/pkg/store/memory"
)

var errUnavailable = errors.New("backend unavailable")

// brokenStore fails every neighbourhood lookup.
type brokenStore struct {
	*memory.Store

	mu    sync.Mutex
	calls int
}

func (s *brokenStore) QueryNeighborhood(context.Context, string, int, int) ([]common.Triple, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return nil, errUnavailable
}

var _ store.GraphStore = (*brokenStore)(nil)

// fakeIndex serves fixed results or a fixed error.
type fakeIndex struct {
	results []common.SearchResult
	err     error

	mu      sync.Mutex
	queries []string
}

func (f *fakeIndex) TopK(_ context.Context, query string, k int) ([]common.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeIndex) Add(context.Context, string, int, int) error { return nil }
func (f *fakeIndex) Delete(context.Context, string) error { return nil }
func (f *fakeIndex) Load(context.Context) error { return nil }
func (f *fakeIndex) Save(context.Context) error { return nil }
func (f *fakeIndex) Sources(context.Context) ([]string, error) { return nil, nil }
func (f *fakeIndex) Close() error { return nil }

// seededStore holds 张三 - WORKS_AT -> 北京大学 and an unrelated edge.
func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	zs := common.Node{ID: "张三", Type: "Person"}
	pku := common.Node{ID: "北京大学", Type: "Organization"}
	bob := common.Node{ID: "Robert", Type: "Person"}
	acme := common.Node{ID: "Initech", Type: "Organization"}
	docs := []common.GraphDocument{
		{
			Nodes:         []common.Node{zs, pku},
			Relationships: []common.Relationship{{Source: zs, Target: pku, Type: "WORKS_AT"}},
			Source:        common.Chunk{ID: "c1", Source: "a.txt", Text: "张三在北京大学工作"},
		},
		{
			Nodes:         []common.Node{bob, acme},
			Relationships: []common.Relationship{{Source: bob, Target: acme, Type: "FOUNDED"}},
			Source:        common.Chunk{ID: "c2", Source: "b.txt", Text: "Robert founded Initech"},
		},
	}
	if err := st.AddGraphDocuments(context.Background(), docs, store.AddOptions{BaseEntityLabel: true, IncludeSource: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return st
}

func newStructured(client *aitest.Client, st store.GraphStore) *StructuredRetriever {
	return NewStructuredRetriever(NewStructuredRetrieverParams{
		Entities: NewEntityExtractor(NewEntityExtractorParams{AIClient: client}),
		Store:    st,
		Fuzzy:    true,
	})
}
