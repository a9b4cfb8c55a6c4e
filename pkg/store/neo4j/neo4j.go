// Package neo4j provides a Neo4j backed graph store.
package neo4j

import (
	"context"
	"fmt"

	"github.com/graphrag-chat/backend/pkg/fulltext"
	"github.com/graphrag-chat/backend/pkg/store/cypher"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewNeo4jStoreParams configures the connection.
type NewNeo4jStoreParams struct {
	URI      string
	Username string
	Password string
	// Database selects a named database; empty uses the server default.
	Database string
}

// Runner executes Cypher through the official driver. Sessions are short
// lived and drawn from the driver's connection pool.
type Runner struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewRunner connects and verifies connectivity.
func NewRunner(ctx context.Context, params NewNeo4jStoreParams) (*Runner, error) {
	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.Username, params.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return &Runner{driver: driver, database: params.Database}, nil
}

// NewNeo4jStore returns a graph store using the Lucene full-text dialect.
func NewNeo4jStore(ctx context.Context, params NewNeo4jStoreParams) (*cypher.Store, error) {
	r, err := NewRunner(ctx, params)
	if err != nil {
		return nil, err
	}
	return cypher.NewStore(r, fulltext.Lucene), nil
}

func (r *Runner) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: r.database,
	})
}

func (r *Runner) Run(ctx context.Context, stmt cypher.Statement) ([]cypher.Record, error) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}

	var rows []cypher.Record
	for result.Next(ctx) {
		rows = append(rows, toRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Write runs all statements in one managed transaction which the driver
// retries on transient errors.
func (r *Runner) Write(ctx context.Context, stmts ...cypher.Statement) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range stmts {
			res, err := tx.Run(ctx, stmt.Query, stmt.Params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (r *Runner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func toRecord(rec *neo4j.Record) cypher.Record {
	out := make(cypher.Record, len(rec.Keys))
	for i, key := range rec.Keys {
		if i < len(rec.Values) {
			out[key] = rec.Values[i]
		}
	}
	return out
}
