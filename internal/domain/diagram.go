package domain

import "strings"

// DiagramDecision is the outcome of the conceptual-vs-factual classification:
// either no diagram is needed, or a standardized generation instruction.
type DiagramDecision struct {
	NeedsDiagram bool   `json:"needs_diagram"`
	DiagramQuery string `json:"diagram_query"`
}

// DiagramResult holds a successfully generated explanation plus Mermaid markup.
type DiagramResult struct {
	Explanation string `json:"explanation"`
	Diagram     string `json:"diagram"`
}

// DiagramErrorKind classifies diagram generation failures
type DiagramErrorKind string

const (
	DiagramErrQueryTooShort DiagramErrorKind = "query_too_short"
	DiagramErrValidation    DiagramErrorKind = "validation"
	DiagramErrInvalidType   DiagramErrorKind = "invalid_diagram_type"
	DiagramErrUpstream      DiagramErrorKind = "upstream"
)

// DiagramOutcome is the structured result of a diagram generation attempt.
// Failures are carried here rather than raised: the diagram path is an
// optional enhancement and must never fail the enclosing request.
type DiagramOutcome struct {
	Success bool
	Result  *DiagramResult
	ErrKind DiagramErrorKind
	Error   string
	Details string
}

// DiagramFailure builds a failed outcome.
func DiagramFailure(kind DiagramErrorKind, message, details string) *DiagramOutcome {
	return &DiagramOutcome{
		Success: false,
		ErrKind: kind,
		Error:   message,
		Details: details,
	}
}

// DiagramSuccess builds a successful outcome.
func DiagramSuccess(explanation, diagram string) *DiagramOutcome {
	return &DiagramOutcome{
		Success: true,
		Result:  &DiagramResult{Explanation: explanation, Diagram: diagram},
	}
}

// validDiagramStarts are the Mermaid diagram types the frontend can render.
var validDiagramStarts = []string{
	"flowchart",
	"graph",
	"sequenceDiagram",
	"classDiagram",
	"stateDiagram",
	"erDiagram",
}

// IsValidDiagramMarkup reports whether the markup begins with a recognized
// Mermaid diagram-type keyword.
func IsValidDiagramMarkup(markup string) bool {
	trimmed := strings.TrimSpace(markup)
	for _, start := range validDiagramStarts {
		if strings.HasPrefix(trimmed, start) {
			return true
		}
	}
	return false
}
