package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/campushq/docqa/internal/api"
	"github.com/campushq/docqa/internal/api/middleware"
	"github.com/campushq/docqa/internal/domain"
	"github.com/campushq/docqa/internal/service"
)

type QueryRunner interface {
	Ask(ctx context.Context, identity domain.Identity, conversationID, question string) (*service.QueryResult, error)
}

type QueryHandler struct {
	svc QueryRunner
}

func NewQueryHandler(svc QueryRunner) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
	Stream         bool   `json:"stream,omitempty"`
}

type DiagramPayload struct {
	Success     bool   `json:"success"`
	Explanation string `json:"explanation,omitempty"`
	Diagram     string `json:"diagram,omitempty"`
	Error       string `json:"error,omitempty"`
	Details     string `json:"details,omitempty"`
}

type QueryResponse struct {
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Citations  []domain.Citation `json:"citations"`
	Confidence string            `json:"confidence"`
	Diagram    *DiagramPayload   `json:"diagram,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func diagramToPayload(outcome *domain.DiagramOutcome) *DiagramPayload {
	if outcome == nil {
		return nil
	}
	payload := &DiagramPayload{
		Success: outcome.Success,
		Error:   outcome.Error,
		Details: outcome.Details,
	}
	if outcome.Result != nil {
		payload.Explanation = outcome.Result.Explanation
		payload.Diagram = outcome.Result.Diagram
	}
	return payload
}

func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	if req.Stream {
		h.stream(w, r, identity, req)
		return
	}

	result, err := h.svc.Ask(r.Context(), identity, req.ConversationID, req.Question)
	if err != nil {
		if isSynthesisFailure(err) {
			api.Success(w, http.StatusOK, QueryResponse{
				Question:   req.Question,
				Answer:     "",
				Citations:  []domain.Citation{},
				Confidence: string(domain.ConfidenceLow),
				Error:      "answer generation failed, please retry",
			})
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Question:   req.Question,
		Answer:     result.Answer.Answer,
		Citations:  result.Answer.Citations,
		Confidence: string(result.Answer.Confidence),
		Diagram:    diagramToPayload(result.Diagram),
	})
}

type sourceEvent struct {
	DocumentName string  `json:"document_name"`
	DocumentID   string  `json:"document_id"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float32 `json:"score"`
}

// stream answers over server-sent events: sources, then the answer word by
// word, then citations, an optional diagram, and a final done marker. The
// full answer is synthesized before the first chunk event; streaming is a
// presentation concern, not incremental generation. A failure emits a single
// error event and ends the stream without done.
func (h *QueryHandler) stream(w http.ResponseWriter, r *http.Request, identity domain.Identity, req QueryRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	result, err := h.svc.Ask(r.Context(), identity, req.ConversationID, req.Question)
	if err != nil {
		message := "query failed"
		if isSynthesisFailure(err) {
			message = "answer generation failed, please retry"
		}
		writeEvent(w, flusher, "error", map[string]string{"error": message})
		return
	}

	sources := make([]sourceEvent, len(result.Chunks))
	for i, c := range result.Chunks {
		sources[i] = sourceEvent{
			DocumentName: c.DocumentName,
			DocumentID:   c.DocumentID,
			ChunkIndex:   c.ChunkIndex,
			Score:        c.Score,
		}
	}
	writeEvent(w, flusher, "sources", sources)

	for _, word := range strings.Fields(result.Answer.Answer) {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		writeEvent(w, flusher, "chunk", map[string]string{"text": word + " "})
	}

	writeEvent(w, flusher, "citations", result.Answer.Citations)

	if payload := diagramToPayload(result.Diagram); payload != nil {
		writeEvent(w, flusher, "diagram", payload)
	}

	writeEvent(w, flusher, "done", map[string]string{
		"confidence": string(result.Answer.Confidence),
	})
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("sse_marshal_error: type=%s err=%v", eventType, err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}

func isSynthesisFailure(err error) bool {
	var domainErr *domain.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeSynthesisFailed
}
