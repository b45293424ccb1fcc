package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidDiagramMarkup(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		valid  bool
	}{
		{"flowchart", "flowchart TD\nA-->B", true},
		{"graph", "graph LR\nA-->B", true},
		{"sequence", "sequenceDiagram\nAlice->>Bob: hi", true},
		{"class", "classDiagram\nAnimal <|-- Duck", true},
		{"state", "stateDiagram-v2\n[*] --> Idle", true},
		{"er", "erDiagram\nSTUDENT ||--o{ COURSE : enrolls", true},
		{"leading whitespace", "  \n flowchart TD\nA-->B", true},
		{"prose", "Here is a diagram: flowchart TD", false},
		{"markdown fence", "```mermaid\nflowchart TD", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidDiagramMarkup(tt.markup))
		})
	}
}

func TestDiagramOutcomeConstructors(t *testing.T) {
	ok := DiagramSuccess("A compiler has several phases.", "flowchart TD\nA-->B")
	assert.True(t, ok.Success)
	assert.Equal(t, "flowchart TD\nA-->B", ok.Result.Diagram)
	assert.Empty(t, ok.Error)

	fail := DiagramFailure(DiagramErrQueryTooShort, "query too short", "")
	assert.False(t, fail.Success)
	assert.Nil(t, fail.Result)
	assert.Equal(t, DiagramErrQueryTooShort, fail.ErrKind)
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RoleFaculty.CanUpload())
	assert.True(t, RoleAdmin.CanUpload())
	assert.False(t, RoleStudent.CanUpload())

	assert.True(t, IsValidRole("student"))
	assert.False(t, IsValidRole("dean"))
}

func TestDomainError_Format(t *testing.T) {
	err := NewDomainError(ErrCodeSynthesisFailed, "answer model returned malformed output")
	assert.Equal(t, "[SYNTHESIS_FAILED] answer model returned malformed output", err.Error())

	wrapped := NewDomainErrorWithCause(ErrCodeRetrievalFailed, "vector retrieval failed", assert.AnError)
	assert.Contains(t, wrapped.Error(), "RETRIEVAL_FAILED")
	assert.ErrorIs(t, wrapped, assert.AnError)
}
