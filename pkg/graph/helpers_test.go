package graph

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/graphrag-chat/backend/pkg/ai/aitest"
	"github.com/graphrag-chat/backend/pkg/store"
)

// lineSplitter makes every non-empty line a chunk.
type lineSplitter struct{}

func (lineSplitter) Split(text string) ([]string, error) {
	return strings.Split(text, "\n"), nil
}

var factPattern = regexp.MustCompile(`(\S+)\|(\S+)\|(\S+)`)

var errScripted = errors.New("scripted extraction failure")

// factExtractor answers graph extraction requests for chunks of the form
// "Subject|RELATION|Object". Chunks containing "fail" always fail.
func factExtractor() *aitest.Client {
	c := aitest.New()
	c.FormatFunc = func(ctx context.Context, prompt string, out any) error {
		if strings.Contains(prompt, "fail") {
			return errScripted
		}
		res := out.(*extractResponse)
		for _, m := range factPattern.FindAllStringSubmatch(prompt, -1) {
			res.Nodes = append(res.Nodes,
				extractNode{ID: m[1], Type: "person"},
				extractNode{ID: m[3], Type: "organization"},
			)
			res.Relationships = append(res.Relationships, extractRelationship{
				Source: m[1], SourceType: "person",
				Target: m[3], TargetType: "organization",
				Type: m[2],
			})
		}
		return nil
	}
	return c
}

func newTestClient(t *testing.T, client *aitest.Client, st store.GraphStore, workers int) *GraphClient {
	t.Helper()
	g, err := NewGraphClient(NewGraphClientParams{
		AIClient:   client,
		Store:      st,
		Splitter:   lineSplitter{},
		Workers:    workers,
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	return g
}
