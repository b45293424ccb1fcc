package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/docqa/internal/domain"
	"github.com/campushq/docqa/internal/telemetry"
)

// DefaultHistoryWindow bounds how many prior turns feed follow-up handling.
const DefaultHistoryWindow = 5

// ConversationStore is the append-only history log, keyed by conversation id.
type ConversationStore interface {
	// Recent returns up to n most recent turns, ordered oldest first.
	Recent(ctx context.Context, conversationID string, n int) ([]domain.ConversationTurn, error)
	Append(ctx context.Context, turn *domain.ConversationTurn) error
}

// QueryResult is the merged outcome of one question: the grounded answer,
// the chunks that backed it, and the optional diagram.
type QueryResult struct {
	Answer  *domain.StructuredAnswer
	Chunks  []domain.RetrievedChunk
	Diagram *domain.DiagramOutcome
}

// QueryService orchestrates one question end to end: history read, parallel
// diagram path, retrieval, synthesis, history append.
type QueryService struct {
	retriever     *Retriever
	synthesizer   *Synthesizer
	decider       *DiagramDecider
	generator     *DiagramGenerator
	conversations ConversationStore
	historyWindow int
}

func NewQueryService(
	retriever *Retriever,
	synthesizer *Synthesizer,
	decider *DiagramDecider,
	generator *DiagramGenerator,
	conversations ConversationStore,
	historyWindow int,
) *QueryService {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &QueryService{
		retriever:     retriever,
		synthesizer:   synthesizer,
		decider:       decider,
		generator:     generator,
		conversations: conversations,
		historyWindow: historyWindow,
	}
}

// Ask answers the question. Retrieval and synthesis failures are returned to
// the caller; the diagram path and history persistence degrade silently.
func (q *QueryService) Ask(ctx context.Context, identity domain.Identity, conversationID, question string) (*QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Ask", telemetry.SpanAttributes{
		ConversationID: conversationID,
		Subject:        identity.Subject,
		Operation:      "ask",
	})
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	history := q.loadHistory(ctx, conversationID)

	// The diagram path runs alongside retrieval+synthesis and is merged at
	// the end. Its failures never touch the main answer.
	diagramCh := make(chan *domain.DiagramOutcome, 1)
	go func() {
		diagramCh <- q.runDiagramPath(ctx, question)
	}()

	chunks, err := q.retriever.Retrieve(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answer, err := q.synthesizer.Synthesize(ctx, question, chunks, history)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	diagram := <-diagramCh

	q.appendTurn(ctx, identity, conversationID, question, answer, diagram)

	return &QueryResult{
		Answer:  answer,
		Chunks:  chunks,
		Diagram: diagram,
	}, nil
}

// runDiagramPath classifies the question and generates a diagram if one is
// wanted. Returns nil when no diagram applies or the decision step failed.
func (q *QueryService) runDiagramPath(ctx context.Context, question string) *domain.DiagramOutcome {
	if q.decider == nil || q.generator == nil {
		return nil
	}

	decision, err := q.decider.Decide(ctx, question)
	if err != nil {
		log.Printf("diagram decision failed, continuing without diagram: %v", err)
		return nil
	}
	if !decision.NeedsDiagram {
		return nil
	}
	return q.generator.Generate(ctx, decision.DiagramQuery)
}

func (q *QueryService) loadHistory(ctx context.Context, conversationID string) []domain.ConversationTurn {
	if conversationID == "" || q.conversations == nil {
		return nil
	}
	history, err := q.conversations.Recent(ctx, conversationID, q.historyWindow)
	if err != nil {
		log.Printf("failed to load history for conversation %s: %v", conversationID, err)
		return nil
	}
	return history
}

func (q *QueryService) appendTurn(ctx context.Context, identity domain.Identity, conversationID, question string, answer *domain.StructuredAnswer, diagram *domain.DiagramOutcome) {
	if conversationID == "" || q.conversations == nil {
		return
	}

	turn := &domain.ConversationTurn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Asker:          identity.Subject,
		Question:       question,
		Answer:         answer.Answer,
		Citations:      answer.Citations,
		Confidence:     answer.Confidence,
		CreatedAt:      time.Now().UTC(),
	}
	if diagram != nil && diagram.Success {
		turn.Diagram = diagram.Result
	}

	if err := q.conversations.Append(ctx, turn); err != nil {
		log.Printf("failed to append turn to conversation %s: %v", conversationID, err)
	}
}
