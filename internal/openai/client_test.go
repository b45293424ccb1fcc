package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateCompletion(ctx context.Context, prompt string, jsonOnly bool) (string, error) {
	args := m.Called(ctx, prompt, jsonOnly)
	return args.String(0), args.Error(1)
}

func newTestClient(embeddings EmbeddingAPI, chat ChatAPI) *Client {
	return &Client{embeddings: embeddings, chat: chat, dimensions: DefaultEmbeddingDimensions}
}

func TestGenerateEmbedding_Success(t *testing.T) {
	api := new(MockEmbeddingAPI)
	client := newTestClient(api, nil)

	embedding := make([]float32, DefaultEmbeddingDimensions)
	api.On("CreateEmbeddings", mock.Anything, "course syllabus").Return(embedding, nil)

	result, err := client.GenerateEmbedding(context.Background(), "course syllabus")

	assert.NoError(t, err)
	assert.Len(t, result, DefaultEmbeddingDimensions)
	api.AssertExpectations(t)
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	client := newTestClient(new(MockEmbeddingAPI), nil)

	_, err := client.GenerateEmbedding(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestGenerateEmbedding_WrongDimensions(t *testing.T) {
	api := new(MockEmbeddingAPI)
	client := newTestClient(api, nil)

	api.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(make([]float32, 10), nil)

	_, err := client.GenerateEmbedding(context.Background(), "text")

	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestGenerateEmbedding_APIError(t *testing.T) {
	api := new(MockEmbeddingAPI)
	client := newTestClient(api, nil)

	api.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	_, err := client.GenerateEmbedding(context.Background(), "text")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embedding")
}

func TestComplete_Success(t *testing.T) {
	chat := new(MockChatAPI)
	client := newTestClient(nil, chat)

	chat.On("CreateCompletion", mock.Anything, "summarize this", false).Return("a summary", nil)

	out, err := client.Complete(context.Background(), "summarize this")

	assert.NoError(t, err)
	assert.Equal(t, "a summary", out)
	chat.AssertExpectations(t)
}

func TestCompleteJSON_ConstrainsToJSONMode(t *testing.T) {
	chat := new(MockChatAPI)
	client := newTestClient(nil, chat)

	chat.On("CreateCompletion", mock.Anything, "classify", true).Return(`{"ok":true}`, nil)

	out, err := client.CompleteJSON(context.Background(), "classify")

	assert.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, out)
	chat.AssertExpectations(t)
}

func TestComplete_EmptyPrompt(t *testing.T) {
	client := newTestClient(nil, new(MockChatAPI))

	_, err := client.Complete(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyText)
}
