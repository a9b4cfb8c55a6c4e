package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/store"
	"github.com/graphrag-chat/backend/pkg/store/memory"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestIngestIsIdempotent(t *testing.T) {
	st := memory.New()
	g := newTestClient(t, factExtractor(), st, 2)
	path := writeFile(t, "people.txt", "Alice|WORKS_AT|Acme\nBob|WORKS_AT|Acme\nCarol|FOUNDED|Initech")

	first, err := g.Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Source != "people.txt" || first.Skipped {
		t.Fatalf("first report = %+v", first)
	}
	if first.Chunks != 3 || first.Extracted != 3 || first.Committed != 3 || first.Failed != 0 {
		t.Fatalf("first report = %+v", first)
	}
	before := st.Stats()

	second, err := g.Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Skipped || second.Chunks != 0 {
		t.Fatalf("second report = %+v, want skipped", second)
	}
	var dup *common.DuplicateSourceError
	if !errors.As(second.Reason, &dup) || dup.Source != "people.txt" {
		t.Fatalf("reason = %v, want DuplicateSourceError", second.Reason)
	}

	after := st.Stats()
	if after != before {
		t.Fatalf("stats changed on re-ingest: %+v -> %+v", before, after)
	}
	if after.Documents != 3 {
		t.Fatalf("documents = %d, want one per chunk", after.Documents)
	}
	if after.Entities != 5 {
		t.Fatalf("entities = %d, want 5", after.Entities)
	}
	if got := st.Labels("Alice"); strings.Join(got, ",") != "Person,"+common.EntityLabel {
		t.Fatalf("labels of Alice = %v", got)
	}
}

func TestIngestLiteralText(t *testing.T) {
	st := memory.New()
	g := newTestClient(t, factExtractor(), st, 2)

	report, err := g.Ingest(context.Background(), "Dave|LEADS|Globex")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Source != common.CustomInputSource || report.Committed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if ids := st.DocumentsBySource(common.CustomInputSource); len(ids) != 1 {
		t.Fatalf("documents for custom input = %v", ids)
	}
}

func TestIngestCountsExtractionFailures(t *testing.T) {
	st := memory.New()
	g := newTestClient(t, factExtractor(), st, 4)
	path := writeFile(t, "mixed.txt", "A|KNOWS|B\nfail here\nC|KNOWS|D")

	report, err := g.Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Chunks != 3 || report.Extracted != 2 || report.Committed != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
}

// failingCommitStore rejects documents whose chunk text contains "reject".
type failingCommitStore struct {
	*memory.Store
}

func (s failingCommitStore) AddGraphDocuments(ctx context.Context, docs []common.GraphDocument, opts store.AddOptions) error {
	for _, d := range docs {
		if strings.Contains(d.Source.Text, "reject") {
			return errors.New("write conflict")
		}
	}
	return s.Store.AddGraphDocuments(ctx, docs, opts)
}

func TestIngestSkipsFailedCommits(t *testing.T) {
	st := failingCommitStore{memory.New()}
	g := newTestClient(t, factExtractor(), st, 2)
	path := writeFile(t, "commit.txt", "A|KNOWS|B\nreject|KNOWS|C\nD|KNOWS|E")

	report, err := g.Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Extracted != 3 || report.Committed != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if docs := st.Stats().Documents; docs != 2 {
		t.Fatalf("documents = %d, want 2", docs)
	}
}

// flakyGuardStore fails the first failures HasDocument calls.
type flakyGuardStore struct {
	*memory.Store
	failures int
	calls    *int
}

func (s flakyGuardStore) HasDocument(ctx context.Context, source string) (bool, error) {
	*s.calls++
	if *s.calls <= s.failures {
		return false, errors.New("connection reset")
	}
	return s.Store.HasDocument(ctx, source)
}

func TestIngestPresenceCheck(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		wantErr       bool
		wantCalls     int
		wantDocuments int
	}{
		{"recovers after one failure", 1, false, 2, 2},
		{"gives up without writing", 10, true, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			st := flakyGuardStore{Store: memory.New(), failures: tt.failures, calls: &calls}
			g := newTestClient(t, factExtractor(), st, 2)

			report, err := g.Ingest(context.Background(), "A|KNOWS|B\nC|KNOWS|D")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Ingest err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Fatalf("HasDocument calls = %d, want %d", calls, tt.wantCalls)
			}
			if docs := st.Stats().Documents; docs != tt.wantDocuments {
				t.Fatalf("documents = %d, want %d", docs, tt.wantDocuments)
			}
			if tt.wantErr && (report.Committed != 0 || report.Skipped) {
				t.Fatalf("report = %+v, want nothing committed", report)
			}
		})
	}
}

func TestIngestUnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can read any file")
	}
	path := writeFile(t, "secret.txt", "A|KNOWS|B")
	if err := os.Chmod(path, 0); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	g := newTestClient(t, factExtractor(), memory.New(), 1)
	if _, err := g.Ingest(context.Background(), path); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}

func TestNewGraphClientRequiresDependencies(t *testing.T) {
	if _, err := NewGraphClient(NewGraphClientParams{Store: memory.New()}); err == nil {
		t.Fatal("expected error without AI client")
	}
	if _, err := NewGraphClient(NewGraphClientParams{AIClient: factExtractor()}); err == nil {
		t.Fatal("expected error without store")
	}

	g, err := NewGraphClient(NewGraphClientParams{AIClient: factExtractor(), Store: memory.New()})
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	if g.workers != DefaultWorkers || g.maxRetries != DefaultMaxRetries || g.llmTimeout != DefaultLLMTimeout {
		t.Fatalf("defaults not applied: %+v", g)
	}
}
