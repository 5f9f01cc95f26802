package rag

import (
	"fmt"
	"strings"
	"time"
)

// Normalize converts raw input into a Document: line endings become \n,
// trailing whitespace is stripped per line, runs of more than two blank
// lines collapse to two, and the metadata envelope is validated. The
// returned content is the exact text chunk offsets refer to.
func Normalize(in RawInput) (Document, error) {
	if strings.TrimSpace(in.SourcePath) == "" {
		return Document{}, fmt.Errorf("%w: source path is required", ErrInvalidConfig)
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}

	text := strings.ReplaceAll(in.Text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		kept = append(kept, line)
	}
	content := strings.TrimSpace(strings.Join(kept, "\n"))

	var extra map[string]string
	if len(in.Extra) > 0 {
		extra = make(map[string]string, len(in.Extra))
		for k, v := range in.Extra {
			if strings.TrimSpace(k) == "" {
				return Document{}, fmt.Errorf("%w: metadata key must not be empty", ErrInvalidConfig)
			}
			extra[k] = v
		}
	}

	return Document{
		ID:      NewDocumentID(in.SourcePath),
		Content: content,
		Meta: DocumentMeta{
			SourcePath: in.SourcePath,
			Category:   category,
			Extra:      extra,
		},
		LoadedAt: time.Now().UTC(),
	}, nil
}
