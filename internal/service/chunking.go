package service

import (
	"strings"
)

// ChunkConfig controls how extracted document text is split before indexing.
type ChunkConfig struct {
	// Size is the target chunk length in characters.
	Size int
	// Overlap is how many trailing characters carry over into the next chunk.
	Overlap int
	// MaxChunks caps how many chunks a single document may produce.
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:      500,
		Overlap:   100,
		MaxChunks: 25,
	}
}

// chunkSeparators are tried in order; splitting prefers paragraph breaks,
// then line breaks, then word boundaries, and only cuts mid-word as a last
// resort.
var chunkSeparators = []string{"\n\n", "\n", " ", ""}

// chunkText splits text into overlapping chunks of roughly cfg.Size
// characters, cutting at the coarsest boundary available.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}

	chunks := splitRecursive(clean, cfg, chunkSeparators)
	if cfg.MaxChunks > 0 && len(chunks) > cfg.MaxChunks {
		chunks = chunks[:cfg.MaxChunks]
	}
	return chunks
}

func splitRecursive(text string, cfg ChunkConfig, separators []string) []string {
	if len(text) <= cfg.Size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	// Pick the coarsest separator that actually occurs in the text; the
	// final "" always matches and splits character by character.
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = splitEvery(text, cfg.Size, cfg.Overlap)
	} else {
		pieces = strings.Split(text, sep)
	}

	chunks := make([]string, 0, 8)
	var window []string
	windowLen := 0
	sepLen := len(sep)

	flush := func() {
		joined := strings.TrimSpace(strings.Join(window, sep))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, piece := range pieces {
		if len(piece) > cfg.Size {
			// A single piece that is still too large gets split with the
			// finer separators; flush whatever is pending first.
			if len(window) > 0 {
				flush()
				window = window[:0]
				windowLen = 0
			}
			chunks = append(chunks, splitRecursive(piece, cfg, rest)...)
			continue
		}

		if windowLen > 0 && windowLen+sepLen+len(piece) > cfg.Size {
			flush()
			// Keep the tail of the window as overlap for the next chunk.
			for windowLen > cfg.Overlap && len(window) > 1 {
				windowLen -= len(window[0]) + sepLen
				window = window[1:]
			}
			if windowLen > cfg.Overlap {
				window = window[:0]
				windowLen = 0
			}
		}

		window = append(window, piece)
		if windowLen == 0 {
			windowLen = len(piece)
		} else {
			windowLen += sepLen + len(piece)
		}
	}
	if len(window) > 0 {
		flush()
	}

	return chunks
}

// splitEvery cuts text into size-length character slices, stepping by
// size-overlap so consecutive slices share an overlap-length tail even when
// no separator boundary exists.
func splitEvery(text string, size, overlap int) []string {
	stride := size - overlap
	if stride <= 0 {
		stride = size
	}

	runes := []rune(text)
	pieces := make([]string, 0, (len(runes)/stride)+1)
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return pieces
}
