package chunk

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEncoding is the tokenizer used for token based splitting.
const TokenEncoding = "cl100k_base"

// Encoder is the part of a tiktoken encoding the splitter needs.
type Encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// TokenSplitter cuts text into windows of size tokens advancing by
// size-overlap tokens.
type TokenSplitter struct {
	size    int
	overlap int
	enc     Encoder
}

func NewTokenSplitter(size, overlap int) (*TokenSplitter, error) {
	enc, err := tiktoken.GetEncoding(TokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", TokenEncoding, err)
	}
	return NewTokenSplitterWithEncoder(size, overlap, enc)
}

// NewTokenSplitterWithEncoder is NewTokenSplitter with a caller supplied
// tokenizer.
func NewTokenSplitterWithEncoder(size, overlap int, enc Encoder) (*TokenSplitter, error) {
	if err := checkSizes(size, overlap); err != nil {
		return nil, err
	}
	return &TokenSplitter{size: size, overlap: overlap, enc: enc}, nil
}

func (s *TokenSplitter) Split(text string) ([]string, error) {
	tokens := s.enc.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := s.size - s.overlap
	var out []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+s.size, len(tokens))
		if piece := strings.TrimSpace(s.enc.Decode(tokens[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(tokens) {
			break
		}
	}
	return out, nil
}
