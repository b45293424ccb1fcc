package handlers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/docqa/internal/api"
	"github.com/campushq/docqa/internal/api/middleware"
	"github.com/campushq/docqa/internal/domain"
	"github.com/campushq/docqa/internal/pagination"
	"github.com/campushq/docqa/internal/repository"
)

const maxUploadBytes = 50 << 20

type DocumentStore interface {
	Create(ctx context.Context, d *domain.Document) error
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*repository.DocumentPageResult, error)
}

type IngestJobStore interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

type DocumentHandler struct {
	documents DocumentStore
	jobs      IngestJobStore
	objects   ObjectStore
}

func NewDocumentHandler(documents DocumentStore, jobs IngestJobStore, objects ObjectStore) *DocumentHandler {
	return &DocumentHandler{documents: documents, jobs: jobs, objects: objects}
}

type UploadDocumentResponse struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

type DocumentResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url,omitempty"`
	Uploader   string `json:"uploader"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		Name:       d.Name,
		URL:        d.URL,
		Uploader:   d.Uploader,
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

var uploadableExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".pptx": {},
	".txt":  {},
}

// Upload stores the file, records the document, and enqueues ingestion.
// Ingestion itself happens in the background worker; the response only
// acknowledges acceptance.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if _, supported := uploadableExtensions[ext]; !supported {
		api.HandleError(w, domain.ErrUnsupportedFormat)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	docID := uuid.NewString()
	storageKey := "documents/" + docID + ext

	if err := h.objects.Upload(r.Context(), storageKey, contentType, file); err != nil {
		api.HandleError(w, err)
		return
	}

	url, err := h.objects.GenerateDownloadURL(r.Context(), storageKey)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	doc := domain.NewDocument(docID, name, storageKey, url, identity.Subject, time.Now().UTC())
	if err := h.documents.Create(r.Context(), doc); err != nil {
		api.HandleError(w, err)
		return
	}

	job := domain.NewIngestJob(uuid.NewString(), docID)
	if err := h.jobs.Create(r.Context(), job); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, UploadDocumentResponse{
		DocumentID: doc.ID,
		Name:       doc.Name,
		Status:     string(doc.Status),
	})
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.documents.ListWithCursor(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}
