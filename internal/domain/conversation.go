package domain

import "time"

// ConversationTurn is one question/answer exchange in a conversation.
// The log is append-only; turns are never updated or deleted.
type ConversationTurn struct {
	ID             string
	ConversationID string
	Asker          string
	Question       string
	Answer         string
	Citations      []Citation
	Confidence     Confidence
	Diagram        *DiagramResult
	CreatedAt      time.Time
}

// Identity is the verified caller identity presented by the external
// identity service. The role claim is trusted as given.
type Identity struct {
	Subject string
	Role    Role
}

// Role is a coarse role claim from the identity service
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// IsValidRole reports whether s is one of the recognized role claims.
func IsValidRole(s string) bool {
	switch Role(s) {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// CanUpload reports whether the role may upload documents for ingestion.
func (r Role) CanUpload() bool {
	return r == RoleFaculty || r == RoleAdmin
}
