package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushq/docqa/internal/api"
	"github.com/campushq/docqa/internal/api/middleware"
	"github.com/campushq/docqa/internal/domain"
)

type ConversationReader interface {
	History(ctx context.Context, conversationID, asker string) ([]domain.ConversationTurn, error)
}

type HistoryHandler struct {
	conversations ConversationReader
}

func NewHistoryHandler(conversations ConversationReader) *HistoryHandler {
	return &HistoryHandler{conversations: conversations}
}

type TurnResponse struct {
	ID         string            `json:"id"`
	Asker      string            `json:"asker"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Citations  []domain.Citation `json:"citations"`
	Confidence string            `json:"confidence"`
	Diagram    *DiagramPayload   `json:"diagram,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

type HistoryResponse struct {
	ConversationID string          `json:"conversation_id"`
	Turns          []*TurnResponse `json:"turns"`
}

func turnToResponse(t domain.ConversationTurn) *TurnResponse {
	resp := &TurnResponse{
		ID:         t.ID,
		Asker:      t.Asker,
		Question:   t.Question,
		Answer:     t.Answer,
		Citations:  t.Citations,
		Confidence: string(t.Confidence),
		CreatedAt:  t.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if resp.Citations == nil {
		resp.Citations = []domain.Citation{}
	}
	if t.Diagram != nil {
		resp.Diagram = &DiagramPayload{
			Success:     true,
			Explanation: t.Diagram.Explanation,
			Diagram:     t.Diagram.Diagram,
		}
	}
	return resp
}

// Get returns the caller's turns of the conversation. Turns asked by other
// users are never exposed, even when the conversation id is known.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conversationID := chi.URLParam(r, "conversation_id")
	if conversationID == "" {
		api.Error(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	turns, err := h.conversations.History(r.Context(), conversationID, identity.Subject)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*TurnResponse, len(turns))
	for i, t := range turns {
		responses[i] = turnToResponse(t)
	}

	api.Success(w, http.StatusOK, HistoryResponse{
		ConversationID: conversationID,
		Turns:          responses,
	})
}
