// Package pgvec stores embedded chunks in Postgres using pgvector.
package pgvec

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/ai"
	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/vector"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// DB is the subset of *pgxpool.Pool the index needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

const (
	createExtension = `CREATE EXTENSION IF NOT EXISTS vector`
	createTable     = `CREATE TABLE IF NOT EXISTS rag_chunks (
	id text PRIMARY KEY,
	source text NOT NULL,
	chunk_index integer NOT NULL,
	content text NOT NULL,
	embedding vector NOT NULL
)`
	createSourceIndex = `CREATE INDEX IF NOT EXISTS rag_chunks_source_idx ON rag_chunks (source)`
	deleteSource      = `DELETE FROM rag_chunks WHERE source = $1`
	insertChunk       = `INSERT INTO rag_chunks (id, source, chunk_index, content, embedding) VALUES ($1, $2, $3, $4, $5)`
	selectTopK        = `SELECT content, source, 1 - (embedding <=> $1) AS score FROM rag_chunks ORDER BY embedding <=> $1 LIMIT $2`
	selectSources     = `SELECT DISTINCT source FROM rag_chunks ORDER BY source`
)

// NewPgvectorIndexParams configures the index.
type NewPgvectorIndexParams struct {
	Embedder ai.Embedder
	Embed    vector.EmbedOptions
}

// Index implements vector.Index over a rag_chunks table. Rows are written on
// Add and Delete, so Save has nothing to flush.
type Index struct {
	db       DB
	embedder ai.Embedder
	embed    vector.EmbedOptions
}

// NewPgvectorIndex wraps an existing connection pool.
func NewPgvectorIndex(db DB, params NewPgvectorIndexParams) *Index {
	return &Index{db: db, embedder: params.Embedder, embed: params.Embed}
}

// Connect opens a pool on url with the vector type registered on every
// connection. The extension is created first because registration looks
// the type up.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	boot, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	_, err = boot.Exec(ctx, createExtension)
	_ = boot.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Load creates the schema if needed.
func (i *Index) Load(ctx context.Context) error {
	for _, stmt := range []string{createExtension, createTable, createSourceIndex} {
		if _, err := i.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare schema: %w", err)
		}
	}
	return nil
}

func (i *Index) Save(context.Context) error {
	return nil
}

func (i *Index) TopK(ctx context.Context, query string, k int) ([]common.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	q, err := i.embedder.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := i.db.Query(ctx, selectTopK, pgvector.NewVector(q), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.SearchResult
	for rows.Next() {
		var r common.SearchResult
		if err := rows.Scan(&r.Text, &r.Source, &r.Score); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Add replaces the chunks of the file's base name in one transaction.
func (i *Index) Add(ctx context.Context, path string, chunkSize, overlap int) error {
	source, entries, err := vector.EmbedFile(ctx, i.embedder, path, chunkSize, overlap, i.embed)
	if err != nil {
		return err
	}

	tx, err := i.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteSource, source); err != nil {
		return fmt.Errorf("failed to replace %s: %w", source, err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx, insertChunk,
			e.ID,
			source,
			e.Index,
			util.SanitizePostgresText(e.Text),
			pgvector.NewVector(e.Vector),
		); err != nil {
			return fmt.Errorf("failed to insert chunk %d of %s: %w", e.Index, source, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Debug("[Vector] Indexed file", "source", source, "chunks", len(entries))
	return nil
}

func (i *Index) Delete(ctx context.Context, path string) error {
	source := filepath.Base(path)
	if _, err := i.db.Exec(ctx, deleteSource, source); err != nil {
		return fmt.Errorf("failed to delete %s: %w", source, err)
	}
	return nil
}

func (i *Index) Sources(ctx context.Context) ([]string, error) {
	rows, err := i.db.Query(ctx, selectSources)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (i *Index) Close() error {
	i.db.Close()
	return nil
}

var _ vector.Index = (*Index)(nil)
