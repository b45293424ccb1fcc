package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campushq/docqa/internal/domain"
)

type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func tableChunk(index int, raw string) domain.Chunk {
	return domain.Chunk{
		DocumentID:   "doc-1",
		DocumentName: "syllabus.pdf",
		ChunkIndex:   index,
		RawText:      raw,
		Tables:       detectTables(raw),
	}
}

func TestEnrichChunksSkipsPlainProse(t *testing.T) {
	chat := new(MockChatCompleter)
	enricher := NewEnricher(chat)

	chunks := []domain.Chunk{
		{ChunkIndex: 0, RawText: "plain prose, no tables here"},
	}
	enricher.EnrichChunks(context.Background(), chunks)

	assert.Empty(t, chunks[0].Enriched)
	chat.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestEnrichChunksRewritesTableChunks(t *testing.T) {
	chat := new(MockChatCompleter)
	chat.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "syllabus.pdf") && strings.Contains(prompt, "Midterm | 30%")
	})).Return("The midterm is worth 30 percent, the final 50 percent.", nil)

	enricher := NewEnricher(chat)
	chunks := []domain.Chunk{
		tableChunk(0, "Component | Weight\nMidterm | 30%\nFinal | 50%"),
	}
	enricher.EnrichChunks(context.Background(), chunks)

	assert.Equal(t, "The midterm is worth 30 percent, the final 50 percent.", chunks[0].Enriched)
	assert.Equal(t, "The midterm is worth 30 percent, the final 50 percent.", chunks[0].SearchText())
	chat.AssertExpectations(t)
}

func TestEnrichChunksFallsBackOnModelError(t *testing.T) {
	chat := new(MockChatCompleter)
	chat.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	enricher := NewEnricher(chat)
	raw := "a | 1\nb | 2\nc | 3"
	chunks := []domain.Chunk{tableChunk(0, raw)}
	enricher.EnrichChunks(context.Background(), chunks)

	// Short raw text comes back unclipped.
	assert.Equal(t, raw, chunks[0].Enriched)
}

func TestEnrichChunksFallsBackOnEmptyOutput(t *testing.T) {
	chat := new(MockChatCompleter)
	chat.On("Complete", mock.Anything, mock.Anything).Return("   ", nil)

	enricher := NewEnricher(chat)
	chunks := []domain.Chunk{tableChunk(0, "a | 1\nb | 2\nc | 3")}
	enricher.EnrichChunks(context.Background(), chunks)

	assert.Equal(t, "a | 1\nb | 2\nc | 3", chunks[0].Enriched)
}

func TestFallbackEnrichmentClipsLongText(t *testing.T) {
	long := strings.Repeat("z", 450)

	got := fallbackEnrichment(long)
	require.Len(t, got, 303)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("z", 300), got[:300])
}

func TestFallbackEnrichmentKeepsShortText(t *testing.T) {
	assert.Equal(t, "short", fallbackEnrichment("short"))
}
