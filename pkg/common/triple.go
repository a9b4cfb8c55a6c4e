package common

import (
	"fmt"
	"strings"
)

const (
	tripleRelSep    = " - "
	tripleTargetSep = " -> "
)

// Triple is one traversed relationship in its readable form.
type Triple struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// String renders the triple as "A - R -> B".
func (t Triple) String() string {
	return t.Source + tripleRelSep + t.Relation + tripleTargetSep + t.Target
}

// ParseTriple is the inverse of Triple.String. Relation types never contain
// spaces, so the relation separator is searched from the target side.
func ParseTriple(s string) (Triple, error) {
	arrow := strings.LastIndex(s, tripleTargetSep)
	if arrow < 0 {
		return Triple{}, fmt.Errorf("invalid triple %q: missing %q", s, strings.TrimSpace(tripleTargetSep))
	}
	head, target := s[:arrow], s[arrow+len(tripleTargetSep):]

	dash := strings.LastIndex(head, tripleRelSep)
	if dash < 0 {
		return Triple{}, fmt.Errorf("invalid triple %q: missing relation", s)
	}
	t := Triple{
		Source:   head[:dash],
		Relation: head[dash+len(tripleRelSep):],
		Target:   target,
	}
	if t.Source == "" || t.Relation == "" || t.Target == "" {
		return Triple{}, fmt.Errorf("invalid triple %q: empty part", s)
	}
	return t, nil
}

// JoinTriples renders triples one per line.
func JoinTriples(triples []Triple) string {
	lines := make([]string, 0, len(triples))
	for _, t := range triples {
		lines = append(lines, t.String())
	}
	return strings.Join(lines, "\n")
}
