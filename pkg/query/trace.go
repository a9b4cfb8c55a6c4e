package query

import (
	"context"
	"sort"
	"sync"
)

type TraceEventKind string

const (
	TraceEventCondensed TraceEventKind = "condensed"
	TraceEventEntities  TraceEventKind = "entities"
	TraceEventTriples   TraceEventKind = "triples"
	TraceEventChunks    TraceEventKind = "chunks"
)

// TraceEvent is an extensible event envelope for retrieval tracing.
type TraceEvent struct {
	Kind TraceEventKind

	Condensed string
	Entities  []string
	Triples   []string
	Sources   []string
}

// Tracer is a sink for retrieval tracing events.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

type tracerKey struct{}

// WithTracer attaches t to ctx. Retrieval records what it looked at on the
// tracer found in its context.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, t)
}

func tracerFrom(ctx context.Context) Tracer {
	t, _ := ctx.Value(tracerKey{}).(Tracer)
	return t
}

func record(ctx context.Context, event TraceEvent) {
	if t := tracerFrom(ctx); t != nil {
		t.Record(event)
	}
}

// QueryTrace collects what one retrieval looked at: the condensed
// question, the extracted entities, the triples found in the graph and the
// sources of the chunks returned by the vector index.
//
// QueryTrace is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	condensed string
	entities  map[string]struct{}
	triples   []string
	sources   map[string]struct{}
}

type QueryTraceSnapshot struct {
	Condensed string   `json:"condensed,omitempty"`
	Entities  []string `json:"entities"`
	Triples   []string `json:"triples"`
	Sources   []string `json:"sources"`
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		entities: make(map[string]struct{}),
		sources:  make(map[string]struct{}),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventCondensed:
		t.condensed = event.Condensed
	case TraceEventEntities:
		for _, e := range event.Entities {
			if e == "" {
				continue
			}
			t.entities[e] = struct{}{}
		}
	case TraceEventTriples:
		t.triples = append(t.triples, event.Triples...)
	case TraceEventChunks:
		for _, s := range event.Sources {
			if s == "" {
				continue
			}
			t.sources[s] = struct{}{}
		}
	default:
		return
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		Condensed: t.condensed,
		Entities:  make([]string, 0, len(t.entities)),
		Triples:   append([]string(nil), t.triples...),
		Sources:   make([]string, 0, len(t.sources)),
	}
	for e := range t.entities {
		s.Entities = append(s.Entities, e)
	}
	for src := range t.sources {
		s.Sources = append(s.Sources, src)
	}

	sort.Strings(s.Entities)
	sort.Strings(s.Sources)

	return s
}
