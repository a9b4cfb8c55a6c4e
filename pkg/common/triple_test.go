package common

import (
	"errors"
	"testing"
)

func TestTripleRoundTrip(t *testing.T) {
	tests := []Triple{
		{Source: "张三", Relation: "WORKS_AT", Target: "北京大学"},
		{Source: "Acme Corp", Relation: "LOCATED_IN", Target: "New York"},
		{Source: "a - b", Relation: "REL", Target: "c"},
	}

	for _, want := range tests {
		s := want.String()
		got, err := ParseTriple(s)
		if err != nil {
			t.Fatalf("ParseTriple(%q) returned error: %v", s, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestTripleString(t *testing.T) {
	got := Triple{Source: "A", Relation: "R", Target: "B"}.String()
	if got != "A - R -> B" {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestParseTriple_Invalid(t *testing.T) {
	for _, s := range []string{"", "A R B", "A -> B", " - R -> B", "A - R -> "} {
		if _, err := ParseTriple(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestJoinTriples(t *testing.T) {
	got := JoinTriples([]Triple{{"A", "R", "B"}, {"B", "S", "C"}})
	if got != "A - R -> B\nB - S -> C" {
		t.Fatalf("unexpected join %q", got)
	}
	if JoinTriples(nil) != "" {
		t.Fatal("expected empty string for no triples")
	}
}

func TestErrorKinds(t *testing.T) {
	base := errors.New("down")
	var re *RetrievalError
	if !errors.As(error(&RetrievalError{Op: "neighborhood", Target: "x", Err: base}), &re) {
		t.Fatal("errors.As failed for RetrievalError")
	}
	if !errors.Is(&IngestionCommitError{Err: base}, base) {
		t.Fatal("IngestionCommitError must unwrap")
	}
	if !errors.Is(&FormatError{Err: base}, base) {
		t.Fatal("FormatError must unwrap")
	}
	if (&DuplicateSourceError{Source: "a.txt"}).Error() == "" {
		t.Fatal("empty message")
	}
}
