package falkordb

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/fulltext"
	"github.com/graphrag-chat/backend/pkg/store"
	"github.com/graphrag-chat/backend/pkg/store/cypher"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"
	"github.com/redis/go-redis/v9"
)

// fakeGraph answers GRAPH.QUERY on a miniredis instance.
type fakeGraph struct {
	mu      sync.Mutex
	graphs  []string
	queries []string
	reply   func(c *server.Peer, query string)
}

func (f *fakeGraph) handle(c *server.Peer, _ string, args []string) {
	if len(args) < 2 {
		c.WriteError("ERR wrong number of arguments for 'GRAPH.QUERY' command")
		return
	}
	f.mu.Lock()
	f.graphs = append(f.graphs, args[0])
	f.queries = append(f.queries, args[1])
	reply := f.reply
	f.mu.Unlock()

	if reply != nil {
		reply(c, args[1])
		return
	}
	c.WriteLen(1)
	c.WriteLen(1)
	c.WriteBulk("Query internal execution time: 0.1 milliseconds")
}

func writeRows(c *server.Peer, header []string, rows [][]any) {
	c.WriteLen(3)
	c.WriteLen(len(header))
	for _, h := range header {
		c.WriteBulk(h)
	}
	c.WriteLen(len(rows))
	for _, row := range rows {
		c.WriteLen(len(row))
		for _, v := range row {
			switch x := v.(type) {
			case int:
				c.WriteInt(x)
			case string:
				c.WriteBulk(x)
			}
		}
	}
	c.WriteLen(1)
	c.WriteBulk("Query internal execution time: 0.1 milliseconds")
}

func newTestStore(t *testing.T) (*cypher.Store, *fakeGraph) {
	t.Helper()
	m := miniredis.RunT(t)
	fg := &fakeGraph{}
	if err := m.Server().Register("GRAPH.QUERY", fg.handle); err != nil {
		t.Fatalf("register: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	s := cypher.NewStore(NewRunner(client, "kb"), fulltext.RediSearch)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, fg
}

func TestQueryNeighborhood(t *testing.T) {
	s, fg := newTestStore(t)
	fg.reply = func(c *server.Peer, _ string) {
		writeRows(c, []string{"source", "relation", "target"}, [][]any{
			{"张三", "WORKS_AT", "北京大学"},
			{"李四", "KNOWS", "张三"},
		})
	}

	triples, err := s.QueryNeighborhood(context.Background(), "%%张三%%", 2, 10)
	if err != nil {
		t.Fatalf("QueryNeighborhood: %v", err)
	}
	if len(triples) != 2 {
		t.Fatalf("triples = %+v", triples)
	}
	if triples[1].String() != "李四 - KNOWS -> 张三" {
		t.Fatalf("second triple = %q", triples[1].String())
	}

	if fg.graphs[0] != "kb" {
		t.Fatalf("graph = %q", fg.graphs[0])
	}
	q := fg.queries[0]
	if !strings.HasPrefix(q, `CYPHER query="%%张三%%" CALL db.idx.fulltext.queryNodes`) {
		t.Fatalf("query = %q", q)
	}
}

func TestHasDocument(t *testing.T) {
	s, fg := newTestStore(t)
	fg.reply = func(c *server.Peer, _ string) {
		writeRows(c, []string{"count"}, [][]any{{1}})
	}
	ok, err := s.HasDocument(context.Background(), `we"ird.txt`)
	if err != nil || !ok {
		t.Fatalf("HasDocument = %v, %v", ok, err)
	}
	if !strings.HasPrefix(fg.queries[0], `CYPHER source="we\"ird.txt" MATCH (d:Document`) {
		t.Fatalf("query = %q", fg.queries[0])
	}
}

func TestAddGraphDocumentsRunsEachStatement(t *testing.T) {
	s, fg := newTestStore(t)
	zs := common.Node{ID: "张三", Type: "Person"}
	pku := common.Node{ID: "北京大学", Type: "Organization"}
	doc := common.GraphDocument{
		Nodes:         []common.Node{zs, pku},
		Relationships: []common.Relationship{{Source: zs, Target: pku, Type: "WORKS_AT"}},
		Source:        common.Chunk{ID: "c1", Source: "file.txt", Text: "张三在北京大学工作"},
	}
	err := s.AddGraphDocuments(context.Background(), []common.GraphDocument{doc},
		store.AddOptions{BaseEntityLabel: true, IncludeSource: true})
	if err != nil {
		t.Fatalf("AddGraphDocuments: %v", err)
	}
	if len(fg.queries) != 6 {
		t.Fatalf("got %d queries", len(fg.queries))
	}
	if !strings.Contains(fg.queries[3], `id="c1"`) || !strings.Contains(fg.queries[3], `source="file.txt"`) {
		t.Fatalf("document query = %q", fg.queries[3])
	}
}

func TestAddGraphDocumentsFailureLeavesNoDocument(t *testing.T) {
	s, fg := newTestStore(t)
	fg.reply = func(c *server.Peer, query string) {
		if strings.Contains(query, "MERGE (s)-[r:") {
			c.WriteError("ERR write failed")
			return
		}
		c.WriteLen(1)
		c.WriteLen(1)
		c.WriteBulk("Query internal execution time: 0.1 milliseconds")
	}
	zs := common.Node{ID: "张三", Type: "Person"}
	pku := common.Node{ID: "北京大学", Type: "Organization"}
	doc := common.GraphDocument{
		Nodes:         []common.Node{zs, pku},
		Relationships: []common.Relationship{{Source: zs, Target: pku, Type: "WORKS_AT"}},
		Source:        common.Chunk{ID: "c1", Source: "file.txt", Text: "张三在北京大学工作"},
	}
	err := s.AddGraphDocuments(context.Background(), []common.GraphDocument{doc},
		store.AddOptions{BaseEntityLabel: true, IncludeSource: true})
	if err == nil {
		t.Fatal("expected write error")
	}
	for _, q := range fg.queries {
		if strings.Contains(q, ":Document") {
			t.Fatalf("document written before the failing statement: %q", q)
		}
	}
}

func TestEnsureFullTextIndexIgnoresExisting(t *testing.T) {
	s, fg := newTestStore(t)
	fg.reply = func(c *server.Peer, _ string) {
		c.WriteError("ERR Attribute 'id' is already indexed")
	}
	if err := s.EnsureFullTextIndex(context.Background()); err != nil {
		t.Fatalf("EnsureFullTextIndex: %v", err)
	}
}

func TestErrorsPropagate(t *testing.T) {
	s, fg := newTestStore(t)
	fg.reply = func(c *server.Peer, _ string) {
		c.WriteError("ERR syntax error")
	}
	if _, err := s.QueryNeighborhood(context.Background(), "%%x%%", 2, 10); err == nil {
		t.Fatalf("expected error")
	}
	if err := s.DeleteAll(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseURL(t *testing.T) {
	opts, graph, err := ParseURL("falkordb://:secret@localhost:6379/kb")
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.Password != "secret" || graph != "kb" {
		t.Fatalf("opts = %+v graph = %q", opts, graph)
	}

	_, graph, err = ParseURL("redis://localhost:6379")
	if err != nil || graph != "rag" {
		t.Fatalf("default graph = %q, %v", graph, err)
	}

	if _, _, err := ParseURL("falkordb://"); err == nil {
		t.Fatalf("expected error for missing host")
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"a\"b", `"a\"b"`},
		{"line\nbreak", `"line\nbreak"`},
		{int64(3), "3"},
		{1.5, "1.5"},
		{true, "true"},
		{nil, "null"},
		{[]string{"x", "y"}, `["x", "y"]`},
		{map[string]any{"b": 1, "a": "v"}, "{`a`: \"v\", `b`: 1}"},
	}
	for _, tt := range tests {
		got, err := literal(tt.in)
		if err != nil {
			t.Fatalf("literal(%v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("literal(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if _, err := literal(struct{}{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
