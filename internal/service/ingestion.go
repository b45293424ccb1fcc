package service

import (
	"context"
	"fmt"
	"log"

	"github.com/campushq/docqa/internal/domain"
	"github.com/campushq/docqa/internal/telemetry"
)

// TextLoader extracts plain text from a file on disk.
type TextLoader interface {
	Load(ctx context.Context, path string) (string, error)
}

// ChunkIndexer persists chunk embeddings. Satisfied by the vector index.
type ChunkIndexer interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
}

// Ingestor runs the one-shot ingestion pipeline for a single document:
// load, chunk, classify, enrich, index.
type Ingestor struct {
	loader   TextLoader
	enricher *Enricher
	index    ChunkIndexer
	chunkCfg ChunkConfig
}

func NewIngestor(loader TextLoader, enricher *Enricher, index ChunkIndexer, chunkCfg ChunkConfig) *Ingestor {
	if chunkCfg.Size <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &Ingestor{
		loader:   loader,
		enricher: enricher,
		index:    index,
		chunkCfg: chunkCfg,
	}
}

// Ingest processes the file at path on behalf of doc and returns the number
// of chunks indexed. A document with no extractable text (e.g. a scanned
// PDF) indexes zero chunks and still succeeds.
func (ing *Ingestor) Ingest(ctx context.Context, doc domain.Document, path string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "Ingestor.Ingest", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	text, err := ing.loader.Load(ctx, path)
	if err != nil {
		span.SetError(err)
		return 0, fmt.Errorf("failed to load document %s: %w", doc.ID, err)
	}

	pieces := chunkText(text, ing.chunkCfg)
	if len(pieces) == 0 {
		log.Printf("document %s (%s) produced no indexable text", doc.ID, doc.Name)
		return 0, nil
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			DocumentURL:  doc.URL,
			Uploader:     doc.Uploader,
			ChunkIndex:   i,
			RawText:      piece,
		}
	}

	classifyChunks(chunks)
	ing.enricher.EnrichChunks(ctx, chunks)

	if err := ing.index.Upsert(ctx, chunks); err != nil {
		span.SetError(err)
		return 0, fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	return len(chunks), nil
}
