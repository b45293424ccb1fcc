package domain

import "time"

// DocumentStatus represents the ingestion state of an uploaded document
type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "pending"
	DocumentStatusIndexed DocumentStatus = "indexed"
	DocumentStatusFailed  DocumentStatus = "failed"
)

// Document represents a user-uploaded file tracked through ingestion.
// Chunks are derived from it exactly once; re-ingestion replaces them wholesale.
type Document struct {
	ID         string
	Name       string
	StorageKey string
	URL        string
	Uploader   string
	Status     DocumentStatus
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDocument creates a new Document instance in the pending state
func NewDocument(id, name, storageKey, url, uploader string, now time.Time) *Document {
	return &Document{
		ID:         id,
		Name:       name,
		StorageKey: storageKey,
		URL:        url,
		Uploader:   uploader,
		Status:     DocumentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Chunk is the unit of embedding and citation: a bounded segment of a
// document's text plus the metadata needed to cite it later.
//
// RawText is always retained even when Enriched replaces it for search;
// citations and excerpting work off the raw text.
type Chunk struct {
	DocumentID   string
	DocumentName string
	DocumentURL  string
	Uploader     string
	ChunkIndex   int
	RawText      string
	Tables       []string
	Enriched     string
}

// SearchText returns the text used for embedding: the enriched representation
// when present, otherwise the raw chunk text.
func (c *Chunk) SearchText() string {
	if c.Enriched != "" {
		return c.Enriched
	}
	return c.RawText
}

// RetrievedChunk is a Chunk returned from the vector index together with its
// cosine similarity to the query.
type RetrievedChunk struct {
	Chunk
	Score float32
}
