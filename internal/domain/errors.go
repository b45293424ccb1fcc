package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeEnrichmentFailed  = "ENRICHMENT_FAILED"
	ErrCodeDiagramDecision   = "DIAGRAM_DECISION_FAILED"
	ErrCodeDiagramGeneration = "DIAGRAM_GENERATION_FAILED"
	ErrCodeSynthesisFailed   = "SYNTHESIS_FAILED"
	ErrCodeRetrievalFailed   = "RETRIEVAL_FAILED"
)

// Validation errors
var (
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question must not be empty")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidConfidence    = NewDomainError(ErrCodeValidation, "invalid confidence label")
)

// Not found errors
var (
	ErrDocumentNotFound     = NewDomainError(ErrCodeNotFound, "document not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrIngestJobNotFound    = NewDomainError(ErrCodeNotFound, "ingest job not found")
)

// Authorization errors
var (
	ErrInvalidToken     = NewDomainError(ErrCodeUnauthorized, "invalid identity token")
	ErrRoleNotPermitted = NewDomainError(ErrCodeForbidden, "role not permitted for this operation")
)

// Ingestion and query pipeline errors. UnsupportedFormat and RetrievalFailed
// are fatal to their request; enrichment and diagram failures are recovered
// locally with a fallback and never propagate past their component.
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeUnsupportedFormat, "unsupported document format")
	ErrEnrichmentFailed  = NewDomainError(ErrCodeEnrichmentFailed, "enrichment call failed")
	ErrDiagramDecision   = NewDomainError(ErrCodeDiagramDecision, "diagram decision failed")
	ErrSynthesisFailed   = NewDomainError(ErrCodeSynthesisFailed, "answer model returned malformed output")
	ErrRetrievalFailed   = NewDomainError(ErrCodeRetrievalFailed, "vector retrieval failed")
)
