package cypher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/fulltext"
	"github.com/graphrag-chat/backend/pkg/store"
)

// Store implements store.GraphStore on top of a Runner.
type Store struct {
	runner  Runner
	dialect fulltext.Dialect
}

// NewStore wraps runner. dialect selects index and lookup procedures.
func NewStore(runner Runner, dialect fulltext.Dialect) *Store {
	return &Store{runner: runner, dialect: dialect}
}

func (s *Store) Dialect() fulltext.Dialect {
	return s.dialect
}

// EnsureFullTextIndex is safe to call repeatedly. FalkorDB has no
// IF NOT EXISTS form, its "already indexed" error is ignored instead.
func (s *Store) EnsureFullTextIndex(ctx context.Context) error {
	_, err := s.runner.Run(ctx, indexStatement(s.dialect))
	if err != nil && s.dialect == fulltext.RediSearch && isAlreadyIndexed(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create full-text index: %w", err)
	}
	return nil
}

func isAlreadyIndexed(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already indexed") || strings.Contains(msg, "already exists")
}

func (s *Store) QueryNeighborhood(
	ctx context.Context,
	query string,
	matchLimit int,
	tripleLimit int,
) ([]common.Triple, error) {
	if strings.TrimSpace(query) == "" || matchLimit <= 0 || tripleLimit <= 0 {
		return nil, nil
	}

	rows, err := s.runner.Run(ctx, neighborhoodStatement(s.dialect, query, matchLimit, tripleLimit))
	if err != nil {
		return nil, err
	}

	triples := make([]common.Triple, 0, len(rows))
	for _, row := range rows {
		t := common.Triple{
			Source:   row.String("source"),
			Relation: row.String("relation"),
			Target:   row.String("target"),
		}
		if t.Source == "" || t.Relation == "" || t.Target == "" {
			continue
		}
		triples = append(triples, t)
	}
	return store.Dedupe(triples), nil
}

func (s *Store) HasDocument(ctx context.Context, source string) (bool, error) {
	rows, err := s.runner.Run(ctx, hasDocumentStatement(source))
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && rows[0].Int("count") > 0, nil
}

// AddGraphDocuments writes each document in its own write call so a bad
// document does not roll back the others.
func (s *Store) AddGraphDocuments(ctx context.Context, docs []common.GraphDocument, opts store.AddOptions) error {
	for _, doc := range docs {
		stmts := documentStatements(doc, opts)
		if len(stmts) == 0 {
			continue
		}
		if err := s.runner.Write(ctx, stmts...); err != nil {
			return fmt.Errorf("failed to write chunk %s: %w", doc.Source.ID, err)
		}
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, source string) error {
	source = filepath.Base(source)
	if err := s.runner.Write(ctx, deleteDocumentStatements(source)...); err != nil {
		return fmt.Errorf("failed to delete source %q: %w", source, err)
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.runner.Write(ctx, deleteAllStatement()); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.runner.Close(ctx)
}

var _ store.GraphStore = (*Store)(nil)
