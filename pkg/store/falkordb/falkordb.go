// Package falkordb provides a FalkorDB backed graph store. FalkorDB speaks
// the Redis protocol, queries go through GRAPH.QUERY.
package falkordb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/graphrag-chat/backend/pkg/fulltext"
	"github.com/graphrag-chat/backend/pkg/store/cypher"

	"github.com/redis/go-redis/v9"
)

const defaultGraph = "rag"

// Runner executes Cypher through GRAPH.QUERY on one named graph.
type Runner struct {
	client redis.UniversalClient
	graph  string
}

// NewRunner uses an existing client. graph defaults to "rag".
func NewRunner(client redis.UniversalClient, graph string) *Runner {
	if graph == "" {
		graph = defaultGraph
	}
	return &Runner{client: client, graph: graph}
}

// ParseURL reads falkordb://[:password@]host:port/graph. The redis scheme is
// accepted as well.
func ParseURL(connectionString string) (*redis.Options, string, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, "", fmt.Errorf("invalid connection string: %w", err)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("invalid connection string: missing host")
	}

	opts := &redis.Options{Addr: u.Host}
	if u.User != nil {
		opts.Username = u.User.Username()
		if p, ok := u.User.Password(); ok {
			opts.Password = p
		}
	}
	graph := strings.TrimPrefix(u.Path, "/")
	if graph == "" {
		graph = defaultGraph
	}
	return opts, graph, nil
}

// NewFalkorDBStore connects to connectionString and returns a graph store
// using the RediSearch full-text dialect.
func NewFalkorDBStore(ctx context.Context, connectionString string) (*cypher.Store, error) {
	opts, graph, err := ParseURL(connectionString)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to falkordb: %w", err)
	}
	return cypher.NewStore(NewRunner(client, graph), fulltext.RediSearch), nil
}

func (r *Runner) Run(ctx context.Context, stmt cypher.Statement) ([]cypher.Record, error) {
	q, err := withParams(stmt)
	if err != nil {
		return nil, err
	}
	res, err := r.client.Do(ctx, "GRAPH.QUERY", r.graph, q).Result()
	if err != nil {
		return nil, err
	}
	return parseResult(res)
}

// Write runs the statements one after another. FalkorDB has no multi
// statement transactions; MERGE keeps a retried write idempotent.
func (r *Runner) Write(ctx context.Context, stmts ...cypher.Statement) error {
	for _, stmt := range stmts {
		if _, err := r.Run(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) Close(context.Context) error {
	return r.client.Close()
}

// withParams prefixes the query with a CYPHER parameter header.
func withParams(stmt cypher.Statement) (string, error) {
	if len(stmt.Params) == 0 {
		return stmt.Query, nil
	}
	var b strings.Builder
	b.WriteString("CYPHER")
	for _, k := range sortedKeys(stmt.Params) {
		v, err := literal(stmt.Params[k])
		if err != nil {
			return "", fmt.Errorf("parameter %s: %w", k, err)
		}
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(v)
	}
	b.WriteString(" ")
	b.WriteString(stmt.Query)
	return b.String(), nil
}

// parseResult reads the verbose reply: [header, rows, stats] for queries
// returning data, [stats] otherwise.
func parseResult(res any) ([]cypher.Record, error) {
	r, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", res)
	}
	switch len(r) {
	case 1:
		return nil, nil
	case 3:
	default:
		return nil, fmt.Errorf("unexpected response length: %d", len(r))
	}

	header, ok := r[0].([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected header type: %T", r[0])
	}
	columns := make([]string, len(header))
	for i, h := range header {
		// compact replies wrap names as [type, name]
		if pair, ok := h.([]any); ok && len(pair) > 0 {
			h = pair[len(pair)-1]
		}
		columns[i] = fmt.Sprint(scalar(h))
	}

	rows, ok := r[1].([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected rows type: %T", r[1])
	}
	out := make([]cypher.Record, 0, len(rows))
	for _, row := range rows {
		vals, ok := row.([]any)
		if !ok {
			continue
		}
		rec := make(cypher.Record, len(columns))
		for i, c := range columns {
			if i < len(vals) {
				rec[c] = scalar(vals[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func scalar(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string, int64, float64, bool, nil:
		return x
	default:
		return fmt.Sprint(x)
	}
}
