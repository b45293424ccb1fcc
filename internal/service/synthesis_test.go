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

type MockJSONCompleter struct {
	mock.Mock
}

func (m *MockJSONCompleter) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func retrievedFixture() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{
			Chunk: domain.Chunk{
				DocumentID:   "doc-1",
				DocumentName: "syllabus.pdf",
				DocumentURL:  "https://files.example.edu/doc-1",
				Uploader:     "prof.smith",
				ChunkIndex:   2,
				RawText:      "The final exam is on December 12th.",
			},
			Score: 0.82,
		},
	}
}

const validAnswerJSON = `{
  "answer": "The final exam is on December 12th.",
  "citations": [{
    "document_name": "syllabus.pdf",
    "document_id": "doc-1",
    "chunk_index": 2,
    "document_url": "https://files.example.edu/doc-1",
    "uploaded_by": "prof.smith"
  }],
  "confidence": "high"
}`

func TestIsFollowUp(t *testing.T) {
	cases := []struct {
		question string
		want     bool
	}{
		{"When is the final exam?", false},
		{"Can you expand on that?", true},
		{"You mentioned a grading policy", true},
		{"As discussed, what about labs?", true},
		{"EARLIER you said something else", true},
		{"What was covered before the midterm?", true},
		{"Define a parser", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isFollowUp(tc.question), tc.question)
	}
}

func TestSynthesizeStrictPath(t *testing.T) {
	chat := new(MockJSONCompleter)
	chat.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "ONLY the") &&
			strings.Contains(prompt, "document_id: doc-1") &&
			strings.Contains(prompt, "chunk_index: 2") &&
			!strings.Contains(prompt, "Conversation so far")
	})).Return(validAnswerJSON, nil)

	s := NewSynthesizer(chat)
	answer, err := s.Synthesize(context.Background(), "When is the final exam?", retrievedFixture(), nil)

	require.NoError(t, err)
	assert.Equal(t, "The final exam is on December 12th.", answer.Answer)
	assert.Equal(t, domain.ConfidenceHigh, answer.Confidence)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "doc-1", answer.Citations[0].DocumentID)
	chat.AssertExpectations(t)
}

func TestSynthesizeFollowUpUsesMemoryPrompt(t *testing.T) {
	chat := new(MockJSONCompleter)
	chat.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Conversation so far") &&
			strings.Contains(prompt, "Q: When is the final exam?") &&
			strings.Contains(prompt, "empty citations list")
	})).Return(`{"answer": "I covered that above.", "citations": [], "confidence": "medium"}`, nil)

	s := NewSynthesizer(chat)
	history := []domain.ConversationTurn{
		{Question: "When is the final exam?", Answer: "December 12th."},
	}
	answer, err := s.Synthesize(context.Background(), "Can you elaborate on that?", nil, history)

	require.NoError(t, err)
	assert.Equal(t, "I covered that above.", answer.Answer)
	assert.Empty(t, answer.Citations)
	chat.AssertExpectations(t)
}

func TestSynthesizeFollowUpWithoutHistoryStaysStrict(t *testing.T) {
	chat := new(MockJSONCompleter)
	chat.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return !strings.Contains(prompt, "Conversation so far")
	})).Return(validAnswerJSON, nil)

	s := NewSynthesizer(chat)
	_, err := s.Synthesize(context.Background(), "Can you elaborate?", retrievedFixture(), nil)

	require.NoError(t, err)
	chat.AssertExpectations(t)
}

func TestSynthesizeExtractsWrappedJSON(t *testing.T) {
	chat := new(MockJSONCompleter)
	chat.On("CompleteJSON", mock.Anything, mock.Anything).
		Return("Here is the answer:\n```json\n"+validAnswerJSON+"\n```", nil)

	s := NewSynthesizer(chat)
	answer, err := s.Synthesize(context.Background(), "When is the final exam?", retrievedFixture(), nil)

	require.NoError(t, err)
	assert.Equal(t, domain.ConfidenceHigh, answer.Confidence)
}

func TestSynthesizeDedupesCitations(t *testing.T) {
	duplicated := `{
	  "answer": "The final exam is on December 12th.",
	  "citations": [
	    {"document_name": "syllabus.pdf", "document_id": "doc-1", "chunk_index": 2},
	    {"document_name": "syllabus.pdf", "document_id": "doc-1", "chunk_index": 2}
	  ],
	  "confidence": "high"
	}`
	chat := new(MockJSONCompleter)
	chat.On("CompleteJSON", mock.Anything, mock.Anything).Return(duplicated, nil)

	s := NewSynthesizer(chat)
	answer, err := s.Synthesize(context.Background(), "When is the final exam?", retrievedFixture(), nil)

	require.NoError(t, err)
	assert.Len(t, answer.Citations, 1)
}

func TestSynthesizeDropsInventedCitations(t *testing.T) {
	invented := `{
	  "answer": "The final exam is on December 12th.",
	  "citations": [
	    {"document_name": "made-up.pdf", "document_id": "doc-999", "chunk_index": 0}
	  ],
	  "confidence": "high"
	}`
	chat := new(MockJSONCompleter)
	chat.On("CompleteJSON", mock.Anything, mock.Anything).Return(invented, nil)

	s := NewSynthesizer(chat)
	answer, err := s.Synthesize(context.Background(), "When is the final exam?", retrievedFixture(), nil)

	require.NoError(t, err)
	assert.Empty(t, answer.Citations)
}

func TestSynthesizeMalformedOutput(t *testing.T) {
	cases := map[string]string{
		"no braces":      "I cannot answer that.",
		"invalid json":   "{not json}",
		"bad confidence": `{"answer": "x", "citations": [], "confidence": "certain"}`,
		"missing answer": `{"citations": [], "confidence": "low"}`,
	}
	for name, out := range cases {
		t.Run(name, func(t *testing.T) {
			chat := new(MockJSONCompleter)
			chat.On("CompleteJSON", mock.Anything, mock.Anything).Return(out, nil)

			s := NewSynthesizer(chat)
			_, err := s.Synthesize(context.Background(), "q", retrievedFixture(), nil)

			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domain.ErrCodeSynthesisFailed, domainErr.Code)
		})
	}
}

func TestSynthesizeModelError(t *testing.T) {
	chat := new(MockJSONCompleter)
	chat.On("CompleteJSON", mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	s := NewSynthesizer(chat)
	_, err := s.Synthesize(context.Background(), "q", retrievedFixture(), nil)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeSynthesisFailed, domainErr.Code)
}

func TestSynthesizeEmptyQuestion(t *testing.T) {
	s := NewSynthesizer(new(MockJSONCompleter))

	_, err := s.Synthesize(context.Background(), "  ", nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestExtractJSONObject(t *testing.T) {
	got, err := extractJSONObject(`prefix {"a": 1} suffix`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)

	_, err = extractJSONObject("no object here")
	assert.Error(t, err)
}
