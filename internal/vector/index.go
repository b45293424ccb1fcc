// Package vector persists chunk embeddings in an embedded chromem-go
// collection and serves cosine-similarity retrieval over them.
package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/campushq/docqa/internal/domain"
)

// Embedder turns text into an embedding vector. Satisfied by the OpenAI client.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Config locates the on-disk collection.
type Config struct {
	// PersistDir is the directory holding the collection. Created if missing.
	PersistDir string
	// Collection names the chunk collection within the store.
	Collection string
	// Compress enables gzip compression of persisted entries.
	Compress bool
}

// Index is a persistent vector index over document chunks. Entries are only
// added or cleared wholesale; individual entries are never mutated.
type Index struct {
	db         *chromem.DB
	cfg        Config
	embedder   Embedder
	mu         sync.Mutex
	collection *chromem.Collection
}

// externalEmbeddingFunc guards against chromem computing embeddings itself;
// every document and query carries a precomputed vector.
func externalEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embeddings are computed externally")
}

// NewIndex opens (or creates) the persistent collection under cfg.PersistDir.
func NewIndex(cfg Config, embedder Embedder) (*Index, error) {
	if cfg.PersistDir == "" {
		return nil, errors.New("persist directory is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("collection name is required")
	}

	if err := os.MkdirAll(cfg.PersistDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create persist directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(cfg.PersistDir, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	idx := &Index{db: db, cfg: cfg, embedder: embedder}
	if _, err := idx.getCollection(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) getCollection() (*chromem.Collection, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.collection != nil {
		return idx.collection, nil
	}

	col, err := idx.db.GetOrCreateCollection(idx.cfg.Collection, nil, externalEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", idx.cfg.Collection, err)
	}
	idx.collection = col
	return col, nil
}

// Upsert embeds each chunk's search text and stores it with self-contained
// flat metadata. Entry IDs are document_id:chunk_index, so concurrent upserts
// from different documents cannot collide.
func (idx *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	col, err := idx.getCollection()
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := idx.embedder.GenerateEmbedding(ctx, chunk.SearchText())
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of document %s: %w", chunk.ChunkIndex, chunk.DocumentID, err)
		}

		docs = append(docs, chromem.Document{
			ID:        chunk.DocumentID + ":" + strconv.Itoa(chunk.ChunkIndex),
			Content:   chunk.SearchText(),
			Embedding: embedding,
			Metadata: map[string]string{
				"document_id":   chunk.DocumentID,
				"document_name": chunk.DocumentName,
				"document_url":  chunk.DocumentURL,
				"uploader":      chunk.Uploader,
				"chunk_index":   strconv.Itoa(chunk.ChunkIndex),
				"raw_text":      chunk.RawText,
			},
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	return nil
}

// Query embeds the text and returns at most k chunks whose cosine similarity
// meets threshold, ordered by descending similarity.
func (idx *Index) Query(ctx context.Context, text string, k int, threshold float32) ([]domain.RetrievedChunk, error) {
	col, err := idx.getCollection()
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 || k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if k > count {
		k = count
	}

	embedding, err := idx.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(results))
	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		chunkIndex, _ := strconv.Atoi(r.Metadata["chunk_index"])
		out = append(out, domain.RetrievedChunk{
			Chunk: domain.Chunk{
				DocumentID:   r.Metadata["document_id"],
				DocumentName: r.Metadata["document_name"],
				DocumentURL:  r.Metadata["document_url"],
				Uploader:     r.Metadata["uploader"],
				ChunkIndex:   chunkIndex,
				RawText:      r.Metadata["raw_text"],
				Enriched:     r.Content,
			},
			Score: r.Similarity,
		})
	}
	return out, nil
}

// Count returns the number of entries in the collection.
func (idx *Index) Count() int {
	col, err := idx.getCollection()
	if err != nil {
		return 0
	}
	return col.Count()
}

// Clear drops the whole collection and recreates it empty. Used when
// reseeding; no per-entry deletes exist.
func (idx *Index) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.db.DeleteCollection(idx.cfg.Collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	idx.collection = nil

	col, err := idx.db.GetOrCreateCollection(idx.cfg.Collection, nil, externalEmbeddingFunc)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	idx.collection = col
	return nil
}
