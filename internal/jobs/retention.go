package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lumenlabs/handoff/internal/domain"
)

// RetentionStore is the slice of the chunk store the sweeper needs.
type RetentionStore interface {
	ListOrgs(ctx context.Context) ([]string, error)
	Expire(ctx context.Context, orgID string, olderThan time.Time) (int, error)
}

// RetentionSweeper disposes of chunks older than the configured retention
// age across all organizations. Runs as a JobProcessor under Worker.
type RetentionSweeper struct {
	store  RetentionStore
	maxAge time.Duration
}

// NewRetentionSweeper creates a RetentionSweeper. A non-positive maxAge
// disables sweeping.
func NewRetentionSweeper(store RetentionStore, maxAge time.Duration) *RetentionSweeper {
	return &RetentionSweeper{store: store, maxAge: maxAge}
}

// ProcessJobs runs one sweep. A failing organization does not stop the
// sweep for the others; the first error is reported after all have been
// attempted.
func (s *RetentionSweeper) ProcessJobs(ctx context.Context) error {
	if s.maxAge <= 0 {
		return nil
	}

	orgs, err := s.store.ListOrgs(ctx)
	if err != nil {
		return fmt.Errorf("listing organizations: %w", err)
	}

	cutoff := time.Now().UTC().Add(-s.maxAge)
	var firstErr error
	for _, orgID := range orgs {
		removed, err := s.store.Expire(ctx, orgID, cutoff)
		if err != nil {
			// Offboarded between listing and expiry.
			if errors.Is(err, domain.ErrUnknownOrganization) {
				continue
			}
			log.Printf("retention: expiry failed for org %s: %v", orgID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if removed > 0 {
			log.Printf("retention: removed %d expired chunks for org %s", removed, orgID)
		}
	}
	return firstErr
}
