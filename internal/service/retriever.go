package service

import (
	"context"
	"strings"

	"github.com/campushq/docqa/internal/domain"
)

// Default retrieval tuning. Three chunks keep the synthesis prompt small and
// 0.3 filters out matches that only share vocabulary with the question.
const (
	DefaultRetrievalTopK      = 3
	DefaultRetrievalThreshold = float32(0.3)
)

// ChunkSearcher is the slice of the vector index retrieval depends on.
type ChunkSearcher interface {
	Query(ctx context.Context, text string, k int, threshold float32) ([]domain.RetrievedChunk, error)
}

// Retriever finds the chunks most relevant to a question.
type Retriever struct {
	index     ChunkSearcher
	topK      int
	threshold float32
}

func NewRetriever(index ChunkSearcher, topK int, threshold float32) *Retriever {
	if topK <= 0 {
		topK = DefaultRetrievalTopK
	}
	if threshold <= 0 {
		threshold = DefaultRetrievalThreshold
	}
	return &Retriever{index: index, topK: topK, threshold: threshold}
}

// Retrieve returns the top matches for the question. An empty result is not
// an error; it means the corpus holds nothing relevant.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	results, err := r.index.Query(ctx, question, r.topK, r.threshold)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailed, "vector search failed", err)
	}
	return results, nil
}
