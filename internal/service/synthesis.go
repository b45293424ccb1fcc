package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campushq/docqa/internal/domain"
)

// JSONCompleter is the slice of the language-model client used by components
// that need schema-constrained JSON output.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

// followUpKeywords mark a question as referring back to the conversation.
// Matching is case-insensitive substring search.
var followUpKeywords = []string{
	"earlier",
	"previous",
	"previously",
	"you mentioned",
	"you said",
	"expand",
	"elaborate",
	"as discussed",
	"last answer",
	"before",
}

// Synthesizer turns retrieved chunks and a question into a grounded,
// citation-bearing structured answer.
type Synthesizer struct {
	chat JSONCompleter
}

func NewSynthesizer(chat JSONCompleter) *Synthesizer {
	return &Synthesizer{chat: chat}
}

// isFollowUp reports whether the question refers back to earlier turns.
func isFollowUp(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range followUpKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Synthesize answers the question from the retrieved chunks, optionally
// consulting the conversation history for follow-up questions. A malformed
// model response is fatal to the call; the transport layer decides how to
// degrade.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []domain.RetrievedChunk, history []domain.ConversationTurn) (*domain.StructuredAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	var prompt string
	if isFollowUp(question) && len(history) > 0 {
		prompt = buildMemoryPrompt(question, chunks, history)
	} else {
		prompt = buildStrictPrompt(question, chunks)
	}

	raw, err := s.chat.CompleteJSON(ctx, prompt)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeSynthesisFailed, "answer model call failed", err)
	}

	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeSynthesisFailed, "answer model returned malformed output", err)
	}

	var answer domain.StructuredAnswer
	if err := json.Unmarshal([]byte(payload), &answer); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeSynthesisFailed, "answer model returned malformed output", err)
	}
	if strings.TrimSpace(answer.Answer) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeSynthesisFailed, "answer model returned an empty answer")
	}
	if !domain.IsValidConfidence(string(answer.Confidence)) {
		return nil, domain.NewDomainError(domain.ErrCodeSynthesisFailed,
			fmt.Sprintf("answer model returned invalid confidence %q", answer.Confidence))
	}

	answer.Citations = domain.DedupeCitations(restrictCitations(answer.Citations, chunks))
	return &answer, nil
}

// restrictCitations drops citations that do not point at a supplied chunk.
// The prompt forbids inventing sources; this enforces it when the model
// ignores the instruction.
func restrictCitations(citations []domain.Citation, chunks []domain.RetrievedChunk) []domain.Citation {
	allowed := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		allowed[c.DocumentID+":"+fmt.Sprint(c.ChunkIndex)] = true
	}

	kept := make([]domain.Citation, 0, len(citations))
	for _, cit := range citations {
		if allowed[cit.Key()] {
			kept = append(kept, cit)
		}
	}
	return kept
}

func renderExcerpts(b *strings.Builder, chunks []domain.RetrievedChunk) {
	if len(chunks) == 0 {
		b.WriteString("No document excerpts were found for this question.\n")
		return
	}
	for i, c := range chunks {
		fmt.Fprintf(b, "--- Excerpt %d ---\n", i+1)
		fmt.Fprintf(b, "document_name: %s\n", c.DocumentName)
		fmt.Fprintf(b, "document_id: %s\n", c.DocumentID)
		fmt.Fprintf(b, "chunk_index: %d\n", c.ChunkIndex)
		fmt.Fprintf(b, "document_url: %s\n", c.DocumentURL)
		fmt.Fprintf(b, "uploaded_by: %s\n", c.Uploader)
		fmt.Fprintf(b, "text:\n%s\n\n", c.RawText)
	}
}

func renderHistory(b *strings.Builder, history []domain.ConversationTurn) {
	b.WriteString("Conversation so far (oldest first):\n")
	for _, turn := range history {
		fmt.Fprintf(b, "Q: %s\nA: %s\n\n", turn.Question, turn.Answer)
	}
}

// answerSchema is appended to every synthesis prompt.
const answerSchema = `Respond with a single JSON object and nothing else:
{
  "answer": "<your answer>",
  "citations": [
    {
      "document_name": "<document_name of a cited excerpt>",
      "document_id": "<document_id of that excerpt>",
      "chunk_index": <chunk_index of that excerpt>,
      "document_url": "<document_url of that excerpt>",
      "uploaded_by": "<uploaded_by of that excerpt>",
      "excerpt": "<short representative quote, optional>"
    }
  ],
  "confidence": "high" | "medium" | "low"
}

Citation rules:
- Cite only the excerpts provided above, copying their fields exactly.
- Never cite the same (document_id, chunk_index) pair twice.
- Emit at most one citation per excerpt, even if it supports several statements.
- confidence must reflect how strongly the excerpts support the answer.
`

func buildStrictPrompt(question string, chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("You are a campus document assistant. Answer the question using ONLY the\n")
	b.WriteString("document excerpts below. If the excerpts do not contain the answer, say so\n")
	b.WriteString("explicitly instead of guessing. Whenever your answer draws on an excerpt,\n")
	b.WriteString("you must cite it.\n\n")
	renderExcerpts(&b, chunks)
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString(answerSchema)
	return b.String()
}

func buildMemoryPrompt(question string, chunks []domain.RetrievedChunk, history []domain.ConversationTurn) string {
	var b strings.Builder
	b.WriteString("You are a campus document assistant. The user is asking a follow-up\n")
	b.WriteString("question. Check the document excerpts below first; if they do not cover the\n")
	b.WriteString("question, you may answer from the conversation so far. An answer sourced\n")
	b.WriteString("purely from the conversation must have an empty citations list — never cite\n")
	b.WriteString("the conversation itself.\n\n")
	renderHistory(&b, history)
	renderExcerpts(&b, chunks)
	fmt.Fprintf(&b, "Follow-up question: %s\n\n", question)
	b.WriteString(answerSchema)
	return b.String()
}

// extractJSONObject returns the substring from the first '{' to the last '}'.
// Models occasionally wrap JSON in prose or fencing despite instructions.
func extractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in model output")
	}
	return s[start : end+1], nil
}
