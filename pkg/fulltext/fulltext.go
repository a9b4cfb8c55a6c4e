// Package fulltext builds fuzzy full-text queries for entity lookups.
package fulltext

import (
	"strings"
)

// Dialect names a full-text query syntax.
type Dialect string

const (
	// Lucene is used by Neo4j full-text indexes.
	Lucene Dialect = "lucene"
	// RediSearch is used by FalkorDB full-text indexes.
	RediSearch Dialect = "redisearch"
)

// FuzzyDistance is the edit distance tolerated per token.
const FuzzyDistance = 2

const (
	luceneReserved     = `+-&|!(){}[]^"~*?:\/`
	redisearchReserved = `,.<>{}[]"':;!@#$%^&*()-+=~|/\`
)

// Builder renders entity names into index queries.
type Builder struct {
	Dialect Dialect
	Fuzzy   bool
}

// NewBuilder returns a Builder for d. An unknown dialect falls back to Lucene.
func NewBuilder(d Dialect, fuzzy bool) Builder {
	if d != RediSearch {
		d = Lucene
	}
	return Builder{Dialect: d, Fuzzy: fuzzy}
}

// Tokens strips the dialect's reserved characters from input and splits the
// rest on whitespace.
func (b Builder) Tokens(input string) []string {
	reserved := luceneReserved
	if b.Dialect == RediSearch {
		reserved = redisearchReserved
	}
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(reserved, r) {
			return ' '
		}
		return r
	}, input)
	return strings.Fields(cleaned)
}

// Build returns the query for input, or "" when nothing searchable is left.
// Every token must match; with Fuzzy set each one tolerates FuzzyDistance
// edits.
func (b Builder) Build(input string) string {
	tokens := b.Tokens(input)
	if len(tokens) == 0 {
		return ""
	}

	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = b.term(tok)
	}

	if b.Dialect == RediSearch {
		return strings.Join(parts, " ")
	}
	return strings.Join(parts, " AND ")
}

func (b Builder) term(tok string) string {
	if !b.Fuzzy {
		return tok
	}
	if b.Dialect == RediSearch {
		return "%%" + tok + "%%"
	}
	return tok + "~2"
}

// ParsedTerm is one clause of a Lucene query produced by Build.
type ParsedTerm struct {
	Token    string
	Distance int
}

// ParseLucene reverses Build for the Lucene dialect so in-process stores can
// evaluate queries.
func ParseLucene(query string) []ParsedTerm {
	var out []ParsedTerm
	for _, part := range strings.Split(query, " AND ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		term := ParsedTerm{Token: part}
		if tok, ok := strings.CutSuffix(part, "~2"); ok {
			term = ParsedTerm{Token: tok, Distance: FuzzyDistance}
		}
		out = append(out, term)
	}
	return out
}
