// Package chunk splits document text into overlapping chunks.
package chunk

import (
	"fmt"
	"strings"

	"github.com/graphrag-chat/backend/pkg/common"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	ModeCharacter = "character"
	ModeToken     = "token"
)

// Default sizes per splitter mode. Vector indexing uses its own, smaller,
// defaults configured by the caller.
const (
	DefaultCharacterSize    = 256
	DefaultCharacterOverlap = 64
	DefaultTokenSize        = 1024
	DefaultTokenOverlap     = 24
)

// Splitter turns a text into ordered chunk strings.
type Splitter interface {
	Split(text string) ([]string, error)
}

// New builds a splitter for mode. Non-positive size or negative overlap
// select the defaults of that mode.
func New(mode string, size, overlap int) (Splitter, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeCharacter:
		if size <= 0 {
			size = DefaultCharacterSize
		}
		if overlap < 0 {
			overlap = DefaultCharacterOverlap
		}
		return NewCharacterSplitter(size, overlap)
	case ModeToken:
		if size <= 0 {
			size = DefaultTokenSize
		}
		if overlap < 0 {
			overlap = DefaultTokenOverlap
		}
		return NewTokenSplitter(size, overlap)
	default:
		return nil, fmt.Errorf("unknown splitter mode %q", mode)
	}
}

func checkSizes(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return nil
}

// Chunks splits text and stamps every piece with a fresh id, the source and
// its position.
func Chunks(source, text string, s Splitter) ([]common.Chunk, error) {
	parts, err := s.Split(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split %q: %w", source, err)
	}

	chunks := make([]common.Chunk, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, common.Chunk{
			ID:     id,
			Source: source,
			Index:  len(chunks),
			Text:   p,
		})
	}
	return chunks, nil
}
