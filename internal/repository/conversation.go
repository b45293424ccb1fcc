package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushq/docqa/internal/domain"
)

// ConversationRepository is the append-only conversation log.
type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Append(ctx context.Context, turn *domain.ConversationTurn) error {
	citations, err := json.Marshal(turn.Citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}

	var diagram []byte
	if turn.Diagram != nil {
		diagram, err = json.Marshal(turn.Diagram)
		if err != nil {
			return fmt.Errorf("failed to marshal diagram: %w", err)
		}
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO conversation_turns (id, conversation_id, asker, question, answer, citations, confidence, diagram, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		turn.ID, turn.ConversationID, turn.Asker, turn.Question, turn.Answer, citations, turn.Confidence, diagram, turn.CreatedAt,
	)
	return err
}

// Recent returns up to n most recent turns of the conversation, reordered
// oldest first for prompt assembly.
func (r *ConversationRepository) Recent(ctx context.Context, conversationID string, n int) ([]domain.ConversationTurn, error) {
	if n <= 0 {
		n = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, asker, question, answer, citations, confidence, diagram, created_at
		 FROM conversation_turns
		 WHERE conversation_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		conversationID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// History returns every turn of the conversation asked by asker, oldest
// first. Scoping by asker keeps one user's turns invisible to another even
// when the conversation id leaks.
func (r *ConversationRepository) History(ctx context.Context, conversationID, asker string) ([]domain.ConversationTurn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, asker, question, answer, citations, confidence, diagram, created_at
		 FROM conversation_turns
		 WHERE conversation_id = $1 AND asker = $2
		 ORDER BY created_at ASC`,
		conversationID, asker,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTurns(rows)
}

func scanTurns(rows pgx.Rows) ([]domain.ConversationTurn, error) {
	var turns []domain.ConversationTurn
	for rows.Next() {
		var turn domain.ConversationTurn
		var citations, diagram []byte
		if err := rows.Scan(&turn.ID, &turn.ConversationID, &turn.Asker, &turn.Question, &turn.Answer,
			&citations, &turn.Confidence, &diagram, &turn.CreatedAt); err != nil {
			return nil, err
		}
		if len(citations) > 0 {
			if err := json.Unmarshal(citations, &turn.Citations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
			}
		}
		if len(diagram) > 0 {
			turn.Diagram = &domain.DiagramResult{}
			if err := json.Unmarshal(diagram, turn.Diagram); err != nil {
				return nil, fmt.Errorf("failed to unmarshal diagram: %w", err)
			}
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}
