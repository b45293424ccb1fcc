package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campushq/docqa/internal/domain"
)

type MockChunkSearcher struct {
	mock.Mock
}

func (m *MockChunkSearcher) Query(ctx context.Context, text string, k int, threshold float32) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, text, k, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

func TestRetrieverUsesConfiguredTuning(t *testing.T) {
	index := new(MockChunkSearcher)
	index.On("Query", mock.Anything, "when is the final exam", 5, float32(0.5)).
		Return([]domain.RetrievedChunk{{Score: 0.9}}, nil)

	r := NewRetriever(index, 5, 0.5)
	results, err := r.Retrieve(context.Background(), "when is the final exam")

	require.NoError(t, err)
	assert.Len(t, results, 1)
	index.AssertExpectations(t)
}

func TestRetrieverDefaults(t *testing.T) {
	index := new(MockChunkSearcher)
	index.On("Query", mock.Anything, "q", DefaultRetrievalTopK, DefaultRetrievalThreshold).
		Return([]domain.RetrievedChunk{}, nil)

	r := NewRetriever(index, 0, 0)
	_, err := r.Retrieve(context.Background(), "q")

	require.NoError(t, err)
	index.AssertExpectations(t)
}

func TestRetrieverEmptyQuestion(t *testing.T) {
	r := NewRetriever(new(MockChunkSearcher), 0, 0)

	_, err := r.Retrieve(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestRetrieverWrapsSearchFailure(t *testing.T) {
	index := new(MockChunkSearcher)
	index.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("store unavailable"))

	r := NewRetriever(index, 0, 0)
	_, err := r.Retrieve(context.Background(), "q")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeRetrievalFailed, domainErr.Code)
}

func TestRetrieverNoMatchesIsNotAnError(t *testing.T) {
	index := new(MockChunkSearcher)
	index.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.RetrievedChunk{}, nil)

	r := NewRetriever(index, 0, 0)
	results, err := r.Retrieve(context.Background(), "q")

	require.NoError(t, err)
	assert.Empty(t, results)
}
