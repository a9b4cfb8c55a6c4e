package chunk

import (
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// CharacterSplitter cuts text into windows of at most size runes that share
// up to overlap runes with their predecessor. Leading and trailing whitespace
// of each window is trimmed.
type CharacterSplitter struct {
	size    int
	overlap int
	inner   textsplitter.RecursiveCharacter
}

func NewCharacterSplitter(size, overlap int) (*CharacterSplitter, error) {
	if err := checkSizes(size, overlap); err != nil {
		return nil, err
	}
	return &CharacterSplitter{
		size:    size,
		overlap: overlap,
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{""}),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}, nil
}

func (s *CharacterSplitter) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	return s.inner.SplitText(text)
}
