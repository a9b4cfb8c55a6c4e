package local

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/graphrag-chat/backend/pkg/ai/aitest"
)

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewLocalIndex(NewLocalIndexParams{InMemory: true, Embedder: aitest.New()})
	if err != nil {
		t.Fatalf("NewLocalIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestAddTopKDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cats := writeFile(t, dir, "cats.txt", strings.Repeat("cats purr and cats sleep all day long. ", 6))
	rust := writeFile(t, dir, "rust.txt", strings.Repeat("iron oxide forms rust on old metal. ", 6))

	idx := newIndex(t)
	if err := idx.Add(ctx, cats, 64, 8); err != nil {
		t.Fatalf("Add cats: %v", err)
	}
	if err := idx.Add(ctx, rust, 64, 8); err != nil {
		t.Fatalf("Add rust: %v", err)
	}

	res, err := idx.TopK(ctx, "cats purr", 2)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d results", len(res))
	}
	for _, r := range res {
		if r.Source != "cats.txt" {
			t.Fatalf("unexpected hit %+v", r)
		}
	}
	if res[0].Score < res[1].Score {
		t.Fatalf("results not sorted: %+v", res)
	}

	sources, _ := idx.Sources(ctx)
	if !reflect.DeepEqual(sources, []string{"cats.txt", "rust.txt"}) {
		t.Fatalf("sources = %q", sources)
	}

	if err := idx.Delete(ctx, "/elsewhere/cats.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	sources, _ = idx.Sources(ctx)
	if !reflect.DeepEqual(sources, []string{"rust.txt"}) {
		t.Fatalf("sources after delete = %q", sources)
	}
}

func TestAddReplacesSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", strings.Repeat("first version of the text. ", 10))

	idx := newIndex(t)
	if err := idx.Add(ctx, path, 64, 8); err != nil {
		t.Fatalf("Add: %v", err)
	}
	before := idx.Len()

	writeFile(t, dir, "doc.txt", "short")
	if err := idx.Add(ctx, path, 64, 8); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Len() != 1 || before <= 1 {
		t.Fatalf("len before=%d after=%d", before, idx.Len())
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", strings.Repeat("persist me across restarts. ", 10))

	idx := newIndex(t)
	if err := idx.Add(ctx, path, 64, 8); err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := idx.Len()
	if err := idx.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := idx.Delete(ctx, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("delete did not clear memory")
	}

	if err := idx.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Len() != want {
		t.Fatalf("loaded %d entries, want %d", idx.Len(), want)
	}
	for i, e := range idx.entries {
		if e.Index != i {
			t.Fatalf("entries out of order at %d: %d", i, e.Index)
		}
	}

	if err := idx.Delete(ctx, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := idx.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := idx.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("snapshot not replaced: %d entries", idx.Len())
	}
}

func TestPersistentPath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "some text worth keeping")
	dbPath := filepath.Join(dir, "index")

	idx, err := NewLocalIndex(NewLocalIndexParams{Path: dbPath, Embedder: aitest.New()})
	if err != nil {
		t.Fatalf("NewLocalIndex: %v", err)
	}
	if err := idx.Add(ctx, path, 0, -1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewLocalIndex(NewLocalIndexParams{Path: dbPath, Embedder: aitest.New()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("len = %d, want 1", reopened.Len())
	}
}

func TestNewLocalIndexValidation(t *testing.T) {
	if _, err := NewLocalIndex(NewLocalIndexParams{InMemory: true}); err == nil {
		t.Fatalf("expected error without embedder")
	}
	if _, err := NewLocalIndex(NewLocalIndexParams{Embedder: aitest.New()}); err == nil {
		t.Fatalf("expected error without path")
	}
}
