package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/graphrag-chat/backend/pkg/ai/aitest"
	"github.com/graphrag-chat/backend/pkg/common"
)

func TestBuildDocument(t *testing.T) {
	c := common.Chunk{ID: "c1", Source: "a.txt", Text: "..."}
	res := extractResponse{
		Nodes: []extractNode{
			{ID: " 张三 ", Type: "PERSON"},
			{ID: "张三", Type: "person"},
			{ID: "", Type: "Organization"},
		},
		Relationships: []extractRelationship{
			{Source: "张三", SourceType: "person", Target: "北京大学", TargetType: "organization", Type: "works at"},
			{Source: "张三", Target: "", Type: "KNOWS"},
			{Source: "张三", Target: "李四", Type: "  "},
		},
	}

	doc := buildDocument(c, res)

	if doc.Source != c {
		t.Fatalf("source chunk = %+v, want %+v", doc.Source, c)
	}
	wantNodes := []common.Node{
		{ID: "张三", Type: "Person"},
		{ID: "北京大学", Type: "Organization"},
	}
	if len(doc.Nodes) != len(wantNodes) {
		t.Fatalf("nodes = %+v, want %+v", doc.Nodes, wantNodes)
	}
	for i := range wantNodes {
		if doc.Nodes[i].ID != wantNodes[i].ID || doc.Nodes[i].Type != wantNodes[i].Type {
			t.Errorf("node %d = %+v, want %+v", i, doc.Nodes[i], wantNodes[i])
		}
	}
	if len(doc.Relationships) != 1 {
		t.Fatalf("relationships = %+v, want 1", doc.Relationships)
	}
	rel := doc.Relationships[0]
	if rel.Type != "WORKS_AT" || rel.Source.ID != "张三" || rel.Target.ID != "北京大学" {
		t.Fatalf("relationship = %+v", rel)
	}
}

func TestTypeNormalization(t *testing.T) {
	tests := []struct {
		in, node, rel string
	}{
		{"person", "Person", "PERSON"},
		{"ORGANIZATION", "Organization", "ORGANIZATION"},
		{"works at", "Works at", "WORKS_AT"},
		{"  located   in ", "Located   in", "LOCATED_IN"},
		{"", "", ""},
		{"人物", "人物", "人物"},
	}
	for _, tt := range tests {
		if got := nodeType(tt.in); got != tt.node {
			t.Errorf("nodeType(%q) = %q, want %q", tt.in, got, tt.node)
		}
		if got := relationshipType(tt.in); got != tt.rel {
			t.Errorf("relationshipType(%q) = %q, want %q", tt.in, got, tt.rel)
		}
	}
}

func TestExtractorParsesModelOutput(t *testing.T) {
	client := aitest.Texts("```json\n" +
		`{"nodes":[{"id":"Alice","type":"person"}],` +
		`"relationships":[{"source":"Alice","source_type":"person","target":"Acme","target_type":"company","type":"founded"}]}` +
		"\n```")
	e := NewExtractor(client)

	doc, err := e.Extract(context.Background(), common.Chunk{ID: "c1", Text: "Alice founded Acme."})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(doc.Nodes) != 2 || doc.Nodes[1].ID != "Acme" || doc.Nodes[1].Type != "Company" {
		t.Fatalf("nodes = %+v", doc.Nodes)
	}
	if len(doc.Relationships) != 1 || doc.Relationships[0].Type != "FOUNDED" {
		t.Fatalf("relationships = %+v", doc.Relationships)
	}
}

func TestExtractorPropagatesErrors(t *testing.T) {
	e := NewExtractor(aitest.New(aitest.Reply{Err: errScripted}))
	_, err := e.Extract(context.Background(), common.Chunk{ID: "c1", Text: "x"})
	if !errors.Is(err, errScripted) {
		t.Fatalf("err = %v, want %v", err, errScripted)
	}
}
