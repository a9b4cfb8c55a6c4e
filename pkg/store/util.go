package store

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var labelRegex = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// SanitizeLabel turns an entity or relationship type into a safe label made
// of letters, digits and underscores in any script. Types without a letter
// or digit yield "".
func SanitizeLabel(l string) string {
	clean := labelRegex.ReplaceAllString(strings.TrimSpace(l), "_")
	if strings.Trim(clean, "_") == "" {
		return ""
	}
	if r, _ := utf8.DecodeRuneInString(clean); unicode.IsDigit(r) {
		clean = "_" + clean
	}
	return clean
}

// DedupeStrings drops empty values and repeats, keeping first-seen order.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Dedupe drops repeated values, keeping first-seen order.
func Dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := in[:0:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
