package admin

import (
	"context"
	"fmt"

	"github.com/lumenlabs/handoff/internal/config"
	"github.com/lumenlabs/handoff/internal/database"
	"github.com/lumenlabs/handoff/internal/store"
)

// OrgStore is the store surface the admin commands and the retention sweeper
// need. Both backends satisfy it.
type OrgStore interface {
	store.TenantStore
	ListOrgs(ctx context.Context) ([]string, error)
}

// newStore builds the configured store backend. The cleanup closes whatever
// the backend holds open.
func newStore(ctx context.Context, cfg *config.Config) (OrgStore, func(), error) {
	switch store.Backend(cfg.StoreBackend) {
	case store.BackendPostgres:
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		st, err := store.NewPostgresStore(pool, cfg.EmbeddingDimensions)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, pool.Close, nil
	case store.BackendChromem:
		st, err := store.NewChromemStore(cfg.ChromemPath, true, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open chromem store: %w", err)
		}
		return st, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
