package domain

import (
	"fmt"
	"time"
)

// Chunk is a bounded segment of sanitized text plus its vector embedding.
// Chunks from different organizations are never stored in the same
// retrievable namespace.
type Chunk struct {
	ID           string
	OrgID        string
	SourceItemID string
	ChunkIndex   int
	Text         string
	Embedding    []float32
	CreatedAt    time.Time
}

// ValidateChunkBatch checks that every chunk in a batch belongs to the given
// organization and is storable. An org mismatch is a caller bug that would
// cross tenant boundaries, so it is a namespace conflict rather than a
// validation error. Rejecting the whole batch up front keeps store writes
// all-or-nothing: no backend starts persisting a batch that cannot finish.
func ValidateChunkBatch(orgID string, chunks []Chunk) error {
	if orgID == "" {
		return ErrMissingOrgID
	}
	if len(chunks) == 0 {
		return ErrEmptyBatch
	}
	for i := range chunks {
		if chunks[i].OrgID != orgID {
			return ErrNamespaceConflict
		}
		if chunks[i].ID == "" {
			return NewDomainError(ErrCodeValidation, fmt.Sprintf("chunk %d has an empty ID", i))
		}
	}
	return nil
}
