// Package cypher implements store.GraphStore for Cypher speaking databases.
// Backends only provide a Runner; statement generation lives here.
package cypher

import (
	"context"
	"fmt"
)

// Statement is a parameterised Cypher query.
type Statement struct {
	Query  string
	Params map[string]any
}

// Record is one result row keyed by column name.
type Record map[string]any

// String returns the column as a string, or "" when absent or null.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

// Int returns the column as an int64, or 0 when absent or not numeric.
func (r Record) Int(key string) int64 {
	switch n := r[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// Runner executes statements against a graph database.
type Runner interface {
	// Run executes a single statement and returns its rows.
	Run(ctx context.Context, stmt Statement) ([]Record, error)
	// Write executes the statements in order, atomically when the backend
	// supports transactions.
	Write(ctx context.Context, stmts ...Statement) error
	Close(ctx context.Context) error
}
