// Package apptest builds an App on in-memory backends for tests.
package apptest

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/ai/aitest"
	"github.com/graphrag-chat/backend/pkg/store/memory"
	"github.com/graphrag-chat/backend/pkg/vector/local"
)

// Answer is what the fact client replies to every non-extraction call.
const Answer = "Alice works at Acme."

var (
	factPattern = regexp.MustCompile(`(\S+)\|(\S+)\|(\S+)`)
	namePattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
)

// FactClient extracts "Subject|RELATION|Object" lines as graph facts and
// answers entity extraction with the capitalized words of the question.
func FactClient() *aitest.Client {
	c := aitest.New()
	c.FormatFunc = func(_ context.Context, prompt string, out any) error {
		type node struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		}
		type rel struct {
			Source     string `json:"source"`
			SourceType string `json:"source_type"`
			Target     string `json:"target"`
			TargetType string `json:"target_type"`
			Type       string `json:"type"`
		}
		res := struct {
			Nodes         []node `json:"nodes"`
			Relationships []rel  `json:"relationships"`
		}{}
		for _, m := range factPattern.FindAllStringSubmatch(prompt, -1) {
			res.Nodes = append(res.Nodes, node{m[1], "person"}, node{m[3], "organization"})
			res.Relationships = append(res.Relationships, rel{m[1], "person", m[3], "organization", m[2]})
		}
		data, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, out)
	}
	c.ChatFunc = func(_ context.Context, msgs []ai.ChatMessage, _ ai.GenerateOptions) (string, error) {
		last := msgs[len(msgs)-1].Message
		if _, q, ok := strings.Cut(last, "input: "); ok {
			names := namePattern.FindAllString(q, -1)
			if names == nil {
				names = []string{}
			}
			data, _ := json.Marshal(map[string][]string{"res": names})
			return string(data), nil
		}
		return Answer, nil
	}
	return c
}

// Config returns an inline configuration with a memory graph and a local
// upload directory under t.TempDir.
func Config(t *testing.T) app.Config {
	t.Helper()
	return app.Config{
		AI:    app.AIConfig{Adapter: app.AdapterOpenAI},
		Graph: app.GraphConfig{Backend: app.GraphMemory, Fuzzy: true},
		Vector: app.VectorConfig{
			Backend:      app.VectorLocal,
			TopK:         3,
			ChunkSize:    128,
			ChunkOverlap: 16,
		},
		Ingest: app.IngestConfig{
			Splitter:     "character",
			ChunkSize:    256,
			ChunkOverlap: 64,
			Workers:      2,
			MaxRetries:   2,
		},
		Server: app.ServerConfig{
			UploadBackend: app.UploadLocal,
			UploadDir:     t.TempDir(),
			IngestMode:    app.IngestInline,
		},
	}
}

// New builds an App from cfg with client, a fresh memory store and an
// in-memory vector index. The App is closed when the test ends.
func New(t *testing.T, client ai.GraphAIClient, cfg app.Config, opts ...app.Option) (*app.App, *memory.Store) {
	t.Helper()
	st := memory.New()
	index, err := local.NewLocalIndex(local.NewLocalIndexParams{InMemory: true, Embedder: client})
	if err != nil {
		t.Fatalf("NewLocalIndex: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	base := []app.Option{app.WithAIClient(client), app.WithGraphStore(st), app.WithVectorIndex(index)}
	a, err := app.New(context.Background(), cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, st
}
