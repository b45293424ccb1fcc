package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/campushq/docqa/internal/domain"
)

// ChatCompleter is the slice of the language-model client enrichment needs.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// fallbackExcerptLen bounds the enrichment fallback excerpt.
const fallbackExcerptLen = 300

// Enricher rewrites table-bearing chunks into prose the embedding model can
// match against natural-language questions. Chunks without tables are left
// untouched; tabular layout embeds poorly, plain prose does not need help.
type Enricher struct {
	chat ChatCompleter
}

func NewEnricher(chat ChatCompleter) *Enricher {
	return &Enricher{chat: chat}
}

// EnrichChunks fills the Enriched field of every chunk that carries table
// fragments. Model failures degrade to a raw-text excerpt; enrichment never
// fails a whole ingestion.
func (e *Enricher) EnrichChunks(ctx context.Context, chunks []domain.Chunk) {
	for i := range chunks {
		if len(chunks[i].Tables) == 0 {
			continue
		}

		enriched, err := e.enrichOne(ctx, &chunks[i])
		if err != nil {
			log.Printf("enrichment failed for chunk %d of document %s, using excerpt fallback: %v",
				chunks[i].ChunkIndex, chunks[i].DocumentID, err)
			enriched = fallbackEnrichment(chunks[i].RawText)
		}
		chunks[i].Enriched = enriched
	}
}

func (e *Enricher) enrichOne(ctx context.Context, chunk *domain.Chunk) (string, error) {
	if e.chat == nil {
		return "", domain.NewDomainError(domain.ErrCodeEnrichmentFailed, "no enrichment model configured")
	}
	prompt := buildEnrichmentPrompt(chunk)
	out, err := e.chat.Complete(ctx, prompt)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeEnrichmentFailed, "enrichment model call failed", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", domain.NewDomainError(domain.ErrCodeEnrichmentFailed, "enrichment model returned empty output")
	}
	return out, nil
}

func buildEnrichmentPrompt(chunk *domain.Chunk) string {
	var b strings.Builder
	b.WriteString("You are preparing a document excerpt for semantic search indexing.\n")
	b.WriteString("The excerpt contains one or more tables. Rewrite its content as a searchable\n")
	b.WriteString("plain-prose description that covers:\n")
	b.WriteString("- the concrete facts each table row states\n")
	b.WriteString("- the topics the excerpt covers\n")
	b.WriteString("- questions a student could answer from it\n")
	b.WriteString("- alternative phrasings of key terms\n\n")
	b.WriteString("Do not use markdown, bullet characters, or table syntax in your output.\n\n")
	fmt.Fprintf(&b, "Document: %s\n\n", chunk.DocumentName)
	fmt.Fprintf(&b, "Excerpt:\n%s\n", chunk.RawText)
	if len(chunk.Tables) > 0 {
		b.WriteString("\nDetected tables:\n")
		for _, table := range chunk.Tables {
			b.WriteString(table)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// fallbackEnrichment returns a bounded excerpt of the raw text so a failed
// enrichment still leaves the chunk indexable.
func fallbackEnrichment(raw string) string {
	runes := []rune(raw)
	if len(runes) <= fallbackExcerptLen {
		return raw
	}
	return string(runes[:fallbackExcerptLen]) + "..."
}
