package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campushq/docqa/internal/api/handlers"
	"github.com/campushq/docqa/internal/domain"
	"github.com/campushq/docqa/internal/pagination"
	"github.com/campushq/docqa/internal/repository"
	"github.com/campushq/docqa/internal/service"
)

type MockIdentityVerifier struct {
	mock.Mock
}

func (m *MockIdentityVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentStore) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*repository.DocumentPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.DocumentPageResult), args.Error(1)
}

type MockIngestJobStore struct {
	mock.Mock
}

func (m *MockIngestJobStore) Create(ctx context.Context, job *domain.IngestJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

func (m *MockObjectStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type MockQueryRunner struct {
	mock.Mock
}

func (m *MockQueryRunner) Ask(ctx context.Context, identity domain.Identity, conversationID, question string) (*service.QueryResult, error) {
	args := m.Called(ctx, identity, conversationID, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QueryResult), args.Error(1)
}

type MockConversationReader struct {
	mock.Mock
}

func (m *MockConversationReader) History(ctx context.Context, conversationID, asker string) ([]domain.ConversationTurn, error) {
	args := m.Called(ctx, conversationID, asker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversationTurn), args.Error(1)
}

type routerMocks struct {
	verifier      *MockIdentityVerifier
	documents     *MockDocumentStore
	jobs          *MockIngestJobStore
	objects       *MockObjectStore
	query         *MockQueryRunner
	conversations *MockConversationReader
}

func setupRouter() (http.Handler, *routerMocks) {
	mocks := &routerMocks{
		verifier:      new(MockIdentityVerifier),
		documents:     new(MockDocumentStore),
		jobs:          new(MockIngestJobStore),
		objects:       new(MockObjectStore),
		query:         new(MockQueryRunner),
		conversations: new(MockConversationReader),
	}

	cfg := RouterConfig{
		IdentityVerifier: mocks.verifier,
		DocumentHandler:  handlers.NewDocumentHandler(mocks.documents, mocks.jobs, mocks.objects),
		QueryHandler:     handlers.NewQueryHandler(mocks.query),
		HistoryHandler:   handlers.NewHistoryHandler(mocks.conversations),
	}

	return NewRouter(cfg), mocks
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_ProtectedRoutes_RequireIdentity(t *testing.T) {
	router, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/documents"},
		{http.MethodPost, "/query"},
		{http.MethodGet, "/history/conv-1"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_QueryWithValidIdentity(t *testing.T) {
	router, mocks := setupRouter()

	mocks.verifier.On("Verify", mock.Anything, "student-token").
		Return(&domain.Identity{Subject: "student-7", Role: domain.RoleStudent}, nil)
	mocks.query.On("Ask", mock.Anything, mock.Anything, "", "When is the deadline?").
		Return(&service.QueryResult{
			Answer: &domain.StructuredAnswer{
				Answer:     "September 12.",
				Citations:  []domain.Citation{},
				Confidence: domain.ConfidenceMedium,
			},
		}, nil)

	body, err := json.Marshal(handlers.QueryRequest{Question: "When is the deadline?"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer student-token")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "September 12.")
	mocks.verifier.AssertExpectations(t)
	mocks.query.AssertExpectations(t)
}

func TestRouter_UploadRequiresUploadRole(t *testing.T) {
	router, mocks := setupRouter()

	mocks.verifier.On("Verify", mock.Anything, "student-token").
		Return(&domain.Identity{Subject: "student-7", Role: domain.RoleStudent}, nil)

	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mocks.objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_ListDocumentsAllowsStudents(t *testing.T) {
	router, mocks := setupRouter()

	mocks.verifier.On("Verify", mock.Anything, "student-token").
		Return(&domain.Identity{Subject: "student-7", Role: domain.RoleStudent}, nil)
	mocks.documents.On("ListWithCursor", mock.Anything, (*pagination.Cursor)(nil), 20).
		Return(&repository.DocumentPageResult{Items: []*domain.Document{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.documents.AssertExpectations(t)
}
