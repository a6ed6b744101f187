// Package classifier decides whether an item belongs to the work context.
// Classification is a hard gate: only work-classified items continue through
// the pipeline, and any failure to classify drops the item.
package classifier

import (
	"context"

	"github.com/lumenlabs/handoff/internal/domain"
)

// Mode selects a classifier implementation via configuration.
type Mode string

const (
	ModeRules Mode = "rules"
	ModeModel Mode = "model"
)

// IsValidMode checks if a Mode is one of the known variants.
func IsValidMode(m Mode) bool {
	return m == ModeRules || m == ModeModel
}

// Classifier assigns a relevance label to a raw item. Implementations must be
// safe for concurrent use. A returned error means the item could not be
// classified and must not be admitted.
type Classifier interface {
	Classify(ctx context.Context, item *domain.RawItem) (domain.ClassificationLabel, error)
}
