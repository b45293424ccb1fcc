package domain

import "strconv"

// Confidence labels how strongly the retrieved evidence supports an answer
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IsValidConfidence reports whether s is one of the recognized labels.
func IsValidConfidence(s string) bool {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Citation points from an answer back to the specific chunk that supports it.
// Citations are unique by (DocumentID, ChunkIndex) within one answer.
type Citation struct {
	DocumentName string `json:"document_name"`
	DocumentID   string `json:"document_id"`
	ChunkIndex   int    `json:"chunk_index"`
	DocumentURL  string `json:"document_url"`
	UploadedBy   string `json:"uploaded_by"`
	Excerpt      string `json:"excerpt,omitempty"`
}

// Key returns the uniqueness key for citation deduplication.
func (c Citation) Key() string {
	return c.DocumentID + ":" + strconv.Itoa(c.ChunkIndex)
}

// StructuredAnswer is the schema the answer model is constrained to.
type StructuredAnswer struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence Confidence `json:"confidence"`
}

// DedupeCitations removes citations sharing a (document_id, chunk_index) pair,
// keeping the first occurrence. Order is preserved.
func DedupeCitations(citations []Citation) []Citation {
	if len(citations) == 0 {
		return []Citation{}
	}
	seen := make(map[string]struct{}, len(citations))
	out := make([]Citation, 0, len(citations))
	for _, c := range citations {
		key := c.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
