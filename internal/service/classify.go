package service

import (
	"strings"

	"github.com/campushq/docqa/internal/domain"
)

// minTableLines is how many delimited lines a chunk needs before its tabular
// content counts as a table rather than incidental punctuation.
const minTableLines = 3

// detectTables collects every table-like line in the chunk, regardless of
// where it sits. A line is table-like when it contains a pipe or tab
// delimiter; when at least minTableLines such lines exist they are joined
// into a single fragment. Delimited lines interleaved with prose still count.
func detectTables(text string) []string {
	var tableLines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "|") || strings.Contains(line, "\t") {
			tableLines = append(tableLines, line)
		}
	}

	if len(tableLines) < minTableLines {
		return nil
	}
	return []string{strings.Join(tableLines, "\n")}
}

// classifyChunks attaches detected table fragments to each chunk in place.
func classifyChunks(chunks []domain.Chunk) {
	for i := range chunks {
		chunks[i].Tables = detectTables(chunks[i].RawText)
	}
}
