package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campushq/docqa/internal/domain"
)

const (
	minDiagramQueryLen  = 3
	minExplanationLen   = 5
	minDiagramMarkupLen = 10
)

// DiagramGenerator produces an explanation plus Mermaid markup for a query.
// Every failure mode comes back as a structured outcome; this component
// never returns an error to its caller.
type DiagramGenerator struct {
	chat JSONCompleter
}

func NewDiagramGenerator(chat JSONCompleter) *DiagramGenerator {
	return &DiagramGenerator{chat: chat}
}

const diagramPrompt = `Generate a diagram for this request: %s

Respond with ONLY a JSON object, no markdown fencing, no commentary:
{"explanation": "<2-4 sentence explanation of the diagram>", "diagram": "<Mermaid diagram markup with \n for line breaks>"}

Rules:
- The diagram must be valid Mermaid markup.
- It must start with one of: flowchart, graph, sequenceDiagram, classDiagram, stateDiagram, erDiagram.
- Use \n inside the diagram string for line breaks; never emit raw newlines inside it.
- Do not wrap the JSON or the diagram in code fences.
`

// Generate builds a diagram for the query. Queries under three characters are
// rejected before any model call.
func (g *DiagramGenerator) Generate(ctx context.Context, query string) *domain.DiagramOutcome {
	query = strings.TrimSpace(query)
	if len(query) < minDiagramQueryLen {
		return domain.DiagramFailure(domain.DiagramErrQueryTooShort,
			"diagram query is too short",
			fmt.Sprintf("query must be at least %d characters", minDiagramQueryLen))
	}

	raw, err := g.chat.CompleteJSON(ctx, fmt.Sprintf(diagramPrompt, query))
	if err != nil {
		return domain.DiagramFailure(domain.DiagramErrUpstream, "diagram model call failed", err.Error())
	}

	payload, err := extractJSONObject(raw)
	if err != nil {
		return domain.DiagramFailure(domain.DiagramErrValidation, "diagram model returned malformed output", err.Error())
	}

	var result domain.DiagramResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return domain.DiagramFailure(domain.DiagramErrValidation, "diagram model returned malformed output", err.Error())
	}

	explanation := strings.TrimSpace(result.Explanation)
	diagram := strings.TrimSpace(result.Diagram)
	if len(explanation) < minExplanationLen {
		return domain.DiagramFailure(domain.DiagramErrValidation, "diagram explanation is missing or trivial", "")
	}
	if len(diagram) < minDiagramMarkupLen {
		return domain.DiagramFailure(domain.DiagramErrValidation, "diagram markup is missing or trivial", "")
	}
	if !domain.IsValidDiagramMarkup(diagram) {
		return domain.DiagramFailure(domain.DiagramErrInvalidType,
			"diagram markup does not start with a recognized diagram type", diagram)
	}

	return domain.DiagramSuccess(explanation, diagram)
}
