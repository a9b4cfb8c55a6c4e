package graph

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
)

type extractNode struct {
	ID   string `json:"id" jsonschema_description:"Name of the entity exactly as it appears in the text"`
	Type string `json:"type" jsonschema_description:"General type of the entity, e.g. Person or Organization"`
}

type extractRelationship struct {
	Source     string `json:"source" jsonschema_description:"Id of the source node"`
	SourceType string `json:"source_type" jsonschema_description:"Type of the source node"`
	Target     string `json:"target" jsonschema_description:"Id of the target node"`
	TargetType string `json:"target_type" jsonschema_description:"Type of the target node"`
	Type       string `json:"type" jsonschema_description:"Relationship type in UPPER_SNAKE_CASE"`
}

type extractResponse struct {
	Nodes         []extractNode         `json:"nodes" jsonschema_description:"Entities identified in the text"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships between the identified entities"`
}

// Extractor turns a chunk into a graph document with one structured output
// request.
type Extractor struct {
	client ai.GraphAIClient
	opts   []ai.GenerateOption
}

func NewExtractor(client ai.GraphAIClient, opts ...ai.GenerateOption) *Extractor {
	return &Extractor{client: client, opts: opts}
}

// Extract runs a single attempt. Node types are capitalized, relationship
// types upper cased with spaces replaced by underscores, and endpoints that
// are missing from the node list are added to it.
func (e *Extractor) Extract(ctx context.Context, c common.Chunk) (common.GraphDocument, error) {
	var res extractResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"extract_graph",
		"Extract nodes and relationships from a text for a knowledge graph.",
		fmt.Sprintf(ai.GraphExtractPrompt, c.Text),
		&res,
		e.opts...,
	)
	if err != nil {
		return common.GraphDocument{}, fmt.Errorf("failed to extract graph from chunk %s: %w", c.ID, err)
	}

	return buildDocument(c, res), nil
}

func buildDocument(c common.Chunk, res extractResponse) common.GraphDocument {
	doc := common.GraphDocument{Source: c}
	index := map[string]int{}
	addNode := func(id, typ string) (common.Node, bool) {
		id = strings.TrimSpace(id)
		if id == "" {
			return common.Node{}, false
		}
		if i, ok := index[id]; ok {
			return doc.Nodes[i], true
		}
		n := common.Node{ID: id, Type: nodeType(typ)}
		index[id] = len(doc.Nodes)
		doc.Nodes = append(doc.Nodes, n)
		return n, true
	}

	for _, n := range res.Nodes {
		addNode(n.ID, n.Type)
	}
	for _, r := range res.Relationships {
		relType := relationshipType(r.Type)
		if relType == "" || strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Target) == "" {
			continue
		}
		source, _ := addNode(r.Source, r.SourceType)
		target, _ := addNode(r.Target, r.TargetType)
		doc.Relationships = append(doc.Relationships, common.Relationship{
			Source: source,
			Target: target,
			Type:   relType,
		})
	}

	return doc
}

// nodeType upper cases the first letter and lower cases the rest.
func nodeType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(t)
	return string(unicode.ToUpper(r)) + strings.ToLower(t[size:])
}

func relationshipType(t string) string {
	return strings.ToUpper(strings.Join(strings.Fields(t), "_"))
}
