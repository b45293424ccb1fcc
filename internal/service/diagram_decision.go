package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campushq/docqa/internal/domain"
)

// DiagramDecider classifies whether a question benefits from a diagram and
// derives a standardized generation instruction for it. Callers treat a
// failure here as "no diagram"; this step never gates the answer path.
type DiagramDecider struct {
	chat JSONCompleter
}

func NewDiagramDecider(chat JSONCompleter) *DiagramDecider {
	return &DiagramDecider{chat: chat}
}

const diagramDecisionPrompt = `You decide whether a question about campus documents benefits from a diagram.

Conceptual questions about processes, phases, workflows, architectures, or
relationships between parts benefit from a diagram. Factual questions asking
for definitions, dates, lists, or resources do not.

Examples:

Question: "Explain the phases of a compiler"
{"needs_diagram": true, "diagram_query": "diagram of compiler phases and how they connect"}

Question: "How does the course registration workflow work?"
{"needs_diagram": true, "diagram_query": "flow diagram of the course registration workflow"}

Question: "When is the final exam?"
{"needs_diagram": false, "diagram_query": ""}

Question: "List the recommended textbooks"
{"needs_diagram": false, "diagram_query": ""}

Now classify this question. Respond with only a JSON object of the same shape.

Question: %q
`

// Decide classifies the question. A model failure or unparseable response is
// returned as an error; the caller falls back to no diagram.
func (d *DiagramDecider) Decide(ctx context.Context, question string) (*domain.DiagramDecision, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return &domain.DiagramDecision{}, nil
	}

	raw, err := d.chat.CompleteJSON(ctx, fmt.Sprintf(diagramDecisionPrompt, question))
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeDiagramDecision, "diagram decision call failed", err)
	}

	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeDiagramDecision, "diagram decision returned malformed output", err)
	}

	var decision domain.DiagramDecision
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeDiagramDecision, "diagram decision returned malformed output", err)
	}
	if decision.NeedsDiagram && strings.TrimSpace(decision.DiagramQuery) == "" {
		// A positive decision with no instruction cannot drive generation.
		decision.DiagramQuery = question
	}
	return &decision, nil
}
