package query

import (
	"context"
	"strings"
	"testing"

	"github.com/graphrag-chat/backend/pkg/ai/aitest"
	"github.com/graphrag-chat/backend/pkg/store/memory"
)

func TestStructuredRetrieve(t *testing.T) {
	client := aitest.Texts(`{"res": ["张三"]}`)
	r := newStructured(client, seededStore(t))

	got := r.Retrieve(context.Background(), "张三在哪里工作?")
	if got != "张三 - WORKS_AT -> 北京大学" {
		t.Fatalf("Retrieve = %q", got)
	}
}

func TestStructuredRetrieveSeveralEntities(t *testing.T) {
	client := aitest.Texts(`{"res": ["张三", "Robert"]}`)
	r := newStructured(client, seededStore(t))

	got := r.Retrieve(context.Background(), "张三 and Robert")
	want := "张三 - WORKS_AT -> 北京大学\nRobert - FOUNDED -> Initech"
	if got != want {
		t.Fatalf("Retrieve = %q, want %q", got, want)
	}
}

func TestStructuredRetrieveFuzzyMatch(t *testing.T) {
	client := aitest.Texts(`{"res": ["Robrt"]}`)
	r := newStructured(client, seededStore(t))

	if got := r.Retrieve(context.Background(), "Robrt?"); got != "Robert - FOUNDED -> Initech" {
		t.Fatalf("Retrieve = %q", got)
	}
}

func TestStructuredRetrieveNeverFails(t *testing.T) {
	st := &brokenStore{Store: memory.New()}
	client := aitest.Texts(`{"res": ["张三", "北京大学"]}`)
	r := NewStructuredRetriever(NewStructuredRetrieverParams{
		Entities:   NewEntityExtractor(NewEntityExtractorParams{AIClient: client}),
		Store:      st,
		Fuzzy:      true,
		MaxRetries: 2,
	})

	if got := r.Retrieve(context.Background(), "q"); got != "" {
		t.Fatalf("Retrieve = %q, want empty", got)
	}
	if st.calls != 4 {
		t.Fatalf("store calls = %d, want 2 entities x 2 attempts", st.calls)
	}
}

func TestStructuredRetrieveSkipsUnsearchableEntities(t *testing.T) {
	st := &brokenStore{Store: memory.New()}
	client := aitest.Texts(`{"res": ["***", "(?)"]}`)
	r := newStructured(client, st)

	if got := r.Retrieve(context.Background(), "q"); got != "" {
		t.Fatalf("Retrieve = %q, want empty", got)
	}
	if st.calls != 0 {
		t.Fatalf("store was queried %d times for unsearchable entities", st.calls)
	}
}

func TestStructuredRetrieveWithoutEntities(t *testing.T) {
	client := aitest.Texts("no", "json", "here")
	r := newStructured(client, seededStore(t))

	if got := r.Retrieve(context.Background(), "hello"); strings.TrimSpace(got) != "" {
		t.Fatalf("Retrieve = %q, want empty", got)
	}
}
