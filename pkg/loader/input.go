// Package loader resolves ingestion inputs into text.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/graphrag-chat/backend/pkg/common"
)

// Input is a resolved ingestion input.
type Input struct {
	Source string
	Text   string
}

// ResolveInput treats input as a path when it names an existing regular
// file and as literal text otherwise. Files are identified by their base
// name, literal text by common.CustomInputSource. Only a file that exists
// but cannot be read is an error.
func ResolveInput(input string) (Input, error) {
	if isFile(input) {
		content, err := os.ReadFile(input)
		if err != nil {
			return Input{}, fmt.Errorf("failed to read %s: %w", input, err)
		}
		return Input{
			Source: filepath.Base(input),
			Text:   strings.ToValidUTF8(string(content), "�"),
		}, nil
	}
	return Input{Source: common.CustomInputSource, Text: input}, nil
}

func isFile(input string) bool {
	if input == "" || strings.ContainsAny(input, "\n\r") {
		return false
	}
	info, err := os.Stat(input)
	return err == nil && info.Mode().IsRegular()
}
