package domain

import (
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// SourceType identifies where a raw item came from.
type SourceType string

const (
	SourceTypeEmail    SourceType = "email"
	SourceTypeNote     SourceType = "note"
	SourceTypeDocument SourceType = "document"
)

// IsValidSourceType checks if a SourceType is one of the known kinds.
func IsValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeEmail, SourceTypeNote, SourceTypeDocument:
		return true
	}
	return false
}

// RawItem is an unsanitized item handed to the pipeline by the ingestion
// collaborator. It is immutable once produced and is consumed exactly once;
// its content must never cross the process boundary.
type RawItem struct {
	ID         string
	OrgID      string
	SourceType SourceType
	Subject    string
	Content    string
	CreatedAt  time.Time
}

// NewRawItem creates a RawItem with a fresh time-ordered ID.
// ULIDs sort lexicographically by creation time, which the retrieval engine
// relies on for recency tie-breaking.
func NewRawItem(orgID string, sourceType SourceType, subject, content string) *RawItem {
	return &RawItem{
		ID:         ulid.Make().String(),
		OrgID:      orgID,
		SourceType: sourceType,
		Subject:    subject,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
}

// ValidateRawItem validates a RawItem before it enters the pipeline.
func ValidateRawItem(item *RawItem) error {
	if item == nil {
		return ErrEmptyContent
	}
	if item.OrgID == "" {
		return ErrMissingOrgID
	}
	if item.Content == "" {
		return ErrEmptyContent
	}
	if !IsValidSourceType(item.SourceType) {
		return ErrInvalidSourceType
	}
	if !utf8.ValidString(item.Content) || !utf8.ValidString(item.Subject) {
		return ErrInvalidInput
	}
	return nil
}

// RedactionEntry records how many matches of one PII class were redacted.
type RedactionEntry struct {
	Class string
	Count int
}

// RedactionReport describes what the sanitizer removed from one item.
// Entries are ordered by the configured rule order, so sanitizing the same
// input always yields the same report.
type RedactionReport struct {
	Entries   []RedactionEntry
	Truncated bool
}

// TotalRedactions returns the total number of redacted matches.
func (r RedactionReport) TotalRedactions() int {
	total := 0
	for _, e := range r.Entries {
		total += e.Count
	}
	return total
}

// SanitizedItem is the only form of an item permitted to leave the process
// boundary. Content is PII-redacted and length-bounded.
type SanitizedItem struct {
	SourceItemID string
	OrgID        string
	SourceType   SourceType
	Content      string
	Report       RedactionReport
	CreatedAt    time.Time
}
