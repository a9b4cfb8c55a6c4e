package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/graphrag-chat/backend/pkg/common"
)

const jsonFence = "```json"

var errNoFence = errors.New("no ```json block found")

// ParseJSONObject decodes a free-form model answer that is supposed to be JSON.
// Two stages are tried: the whole text, then the content of the first ```json
// fenced block. When both fail a *common.FormatError carrying the raw text is
// returned.
func ParseJSONObject(raw string, out any) error {
	direct := json.Unmarshal([]byte(strings.TrimSpace(raw)), out)
	if direct == nil {
		return nil
	}

	inner, err := fencedJSON(raw)
	if err != nil {
		return &common.FormatError{Raw: raw, Err: fmt.Errorf("%w; %w", direct, err)}
	}
	if err := json.Unmarshal([]byte(inner), out); err != nil {
		return &common.FormatError{Raw: raw, Err: fmt.Errorf("fenced block: %w", err)}
	}
	return nil
}

func fencedJSON(raw string) (string, error) {
	start := strings.Index(raw, jsonFence)
	if start < 0 {
		return "", errNoFence
	}
	rest := raw[start+len(jsonFence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", errors.New("unterminated ```json block")
	}
	return strings.TrimSpace(rest[:end]), nil
}
