package store

import (
	"context"

	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/fulltext"
)

// AddOptions controls how graph documents are written.
type AddOptions struct {
	// BaseEntityLabel adds the common entity label to every extracted node
	// so a single full-text index covers all entity types.
	BaseEntityLabel bool
	// IncludeSource writes the chunk as a Document node and links it to each
	// extracted entity with a MENTIONS relationship.
	IncludeSource bool
}

// GraphStore persists extracted graph documents and answers the
// neighbourhood queries used by structured retrieval.
type GraphStore interface {
	// EnsureFullTextIndex creates the entity full-text index if it does not
	// exist yet.
	EnsureFullTextIndex(ctx context.Context) error
	// QueryNeighborhood matches at most matchLimit entities against the
	// full-text query and returns up to tripleLimit one-hop relationships
	// around them in either direction. MENTIONS edges are never returned.
	QueryNeighborhood(ctx context.Context, query string, matchLimit, tripleLimit int) ([]common.Triple, error)
	// HasDocument reports whether a Document node with this source exists.
	HasDocument(ctx context.Context, source string) (bool, error)
	AddGraphDocuments(ctx context.Context, docs []common.GraphDocument, opts AddOptions) error
	// DeleteDocument removes every Document with this source together with
	// the entities they mention.
	DeleteDocument(ctx context.Context, source string) error
	// DeleteAll removes every node and relationship.
	DeleteAll(ctx context.Context) error
	// Dialect is the full-text query syntax the entity index understands.
	Dialect() fulltext.Dialect
	Close(ctx context.Context) error
}
