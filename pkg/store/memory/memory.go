// Package memory is an in-process graph store for tests, the CLI and
// single node deployments without a graph database.
package memory

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/graphrag-chat/backend/pkg/common"
	"github.com/graphrag-chat/backend/pkg/fulltext"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/store"

	"github.com/agnivade/levenshtein"
)

type entity struct {
	id     string
	labels map[string]struct{}
	props  map[string]any
}

type document struct {
	id     string
	source string
	text   string
	// mentions holds entity ids in insertion order.
	mentions []string
}

type edge struct {
	source string
	typ    string
	target string
}

// Store keeps the graph in maps guarded by a RWMutex. Queries use the Lucene
// dialect produced by fulltext.Builder and match entity ids by edit distance.
type Store struct {
	mu sync.RWMutex

	entities map[string]*entity
	// order keeps entity ids in creation order for deterministic scans.
	order     []string
	documents map[string]*document
	edges     []edge

	indexed bool
}

func New() *Store {
	return &Store{
		entities:  map[string]*entity{},
		documents: map[string]*document{},
	}
}

func (s *Store) Dialect() fulltext.Dialect {
	return fulltext.Lucene
}

func (s *Store) EnsureFullTextIndex(context.Context) error {
	s.mu.Lock()
	s.indexed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) QueryNeighborhood(
	ctx context.Context,
	query string,
	matchLimit int,
	tripleLimit int,
) ([]common.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := fulltext.ParseLucene(query)
	if len(terms) == 0 || matchLimit <= 0 || tripleLimit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type match struct {
		id    string
		score int
	}
	var matches []match
	for _, id := range s.order {
		if score, ok := matchEntity(id, terms); ok {
			matches = append(matches, match{id: id, score: score})
		}
	}
	slices.SortStableFunc(matches, func(a, b match) int { return a.score - b.score })
	if len(matches) > matchLimit {
		matches = matches[:matchLimit]
	}

	var triples []common.Triple
	for _, m := range matches {
		for _, e := range s.edges {
			if e.source != m.id && e.target != m.id {
				continue
			}
			triples = append(triples, common.Triple{Source: e.source, Relation: e.typ, Target: e.target})
		}
	}
	triples = store.Dedupe(triples)
	if len(triples) > tripleLimit {
		triples = triples[:tripleLimit]
	}
	return triples, nil
}

// matchEntity requires every term to match some word of id within the
// term's edit distance. The score is the summed distance, lower is better.
func matchEntity(id string, terms []fulltext.ParsedTerm) (int, bool) {
	words := strings.Fields(strings.ToLower(id))
	score := 0
	for _, term := range terms {
		tok := strings.ToLower(term.Token)
		best := -1
		for _, w := range words {
			d := levenshtein.ComputeDistance(tok, w)
			if d <= term.Distance && (best < 0 || d < best) {
				best = d
			}
		}
		if best < 0 {
			return 0, false
		}
		score += best
	}
	return score, true
}

func (s *Store) HasDocument(ctx context.Context, source string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if d.source == source {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AddGraphDocuments(ctx context.Context, docs []common.GraphDocument, opts store.AddOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		var d *document
		if opts.IncludeSource {
			d = s.documents[doc.Source.ID]
			if d == nil {
				d = &document{id: doc.Source.ID}
				s.documents[doc.Source.ID] = d
			}
			d.source = doc.Source.Source
			d.text = doc.Source.Text
		}

		for _, n := range doc.Nodes {
			if n.ID == "" {
				continue
			}
			e := s.upsertEntity(n.ID)
			if opts.BaseEntityLabel {
				e.labels[common.EntityLabel] = struct{}{}
			}
			if l := store.SanitizeLabel(n.Type); l != "" {
				e.labels[l] = struct{}{}
			}
			for k, v := range n.Properties {
				e.props[k] = v
			}
			if d != nil && !slices.Contains(d.mentions, n.ID) {
				d.mentions = append(d.mentions, n.ID)
			}
		}

		for _, rel := range doc.Relationships {
			relType := store.SanitizeLabel(rel.Type)
			if relType == "" || s.entities[rel.Source.ID] == nil || s.entities[rel.Target.ID] == nil {
				logger.Warn("[Store] Dropping relationship",
					"source", rel.Source.ID, "type", rel.Type, "target", rel.Target.ID)
				continue
			}
			e := edge{source: rel.Source.ID, typ: relType, target: rel.Target.ID}
			if !slices.Contains(s.edges, e) {
				s.edges = append(s.edges, e)
			}
		}
	}
	return nil
}

func (s *Store) upsertEntity(id string) *entity {
	if e, ok := s.entities[id]; ok {
		return e
	}
	e := &entity{id: id, labels: map[string]struct{}{}, props: map[string]any{}}
	s.entities[id] = e
	s.order = append(s.order, id)
	return e
}

// DeleteDocument removes the documents of source and every entity they
// mention, including that entity's relationships.
func (s *Store) DeleteDocument(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	source = filepath.Base(source)

	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := map[string]struct{}{}
	for id, d := range s.documents {
		if d.source != source {
			continue
		}
		for _, m := range d.mentions {
			doomed[m] = struct{}{}
		}
		delete(s.documents, id)
	}
	if len(doomed) == 0 {
		return nil
	}

	for id := range doomed {
		delete(s.entities, id)
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		_, gone := doomed[id]
		return gone
	})
	s.edges = slices.DeleteFunc(s.edges, func(e edge) bool {
		_, a := doomed[e.source]
		_, b := doomed[e.target]
		return a || b
	})
	for _, d := range s.documents {
		d.mentions = slices.DeleteFunc(d.mentions, func(id string) bool {
			_, gone := doomed[id]
			return gone
		})
	}
	return nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.entities = map[string]*entity{}
	s.order = nil
	s.documents = map[string]*document{}
	s.edges = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) Close(context.Context) error {
	return nil
}

// Stats reports node and relationship counts. MENTIONS links are counted as
// relationships.
type Stats struct {
	Documents     int
	Entities      int
	Relationships int
	Mentions      int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Documents:     len(s.documents),
		Entities:      len(s.entities),
		Relationships: len(s.edges),
	}
	for _, d := range s.documents {
		st.Mentions += len(d.mentions)
	}
	return st
}

// DocumentsBySource returns the ids of Document nodes with this source.
func (s *Store) DocumentsBySource(source string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, d := range s.documents {
		if d.source == source {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Labels returns the sorted labels of an entity, nil when it does not exist.
func (s *Store) Labels(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.labels))
	for l := range e.labels {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

var _ store.GraphStore = (*Store)(nil)
