//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/testutil"
)

func newPostgresStore(ctx context.Context, t *testing.T) *PostgresStore {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(context.Background()) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)

	s, err := NewPostgresStore(pool, testutil.EmbeddingDimensions)
	require.NoError(t, err)
	return s
}

func pgChunk(orgID, sourceItemID string, index int, text string, axis int) domain.Chunk {
	vec := make([]float32, testutil.EmbeddingDimensions)
	vec[axis] = 1
	return domain.Chunk{
		ID:           orgID + "-" + sourceItemID + "-" + string(rune('0'+index)),
		OrgID:        orgID,
		SourceItemID: sourceItemID,
		ChunkIndex:   index,
		Text:         text,
		Embedding:    vec,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestPostgresStore_WriteAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(ctx, t)

	require.NoError(t, s.Write(ctx, "org_a", []domain.Chunk{
		pgChunk("org_a", "item1", 0, "release checklist", 0),
		pgChunk("org_a", "item2", 0, "budget summary", 1),
	}))

	vec := make([]float32, testutil.EmbeddingDimensions)
	vec[1] = 1
	results, err := s.Query(ctx, "org_a", vec, 1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "budget summary", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, float64(results[0].Score), 0.01)
}

func TestPostgresStore_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(ctx, t)

	require.NoError(t, s.Write(ctx, "org_a", []domain.Chunk{pgChunk("org_a", "a1", 0, "org a data", 0)}))
	require.NoError(t, s.Write(ctx, "org_b", []domain.Chunk{pgChunk("org_b", "b1", 0, "org b data", 0)}))

	vec := make([]float32, testutil.EmbeddingDimensions)
	vec[0] = 1
	results, err := s.Query(ctx, "org_a", vec, 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "org_a", results[0].Chunk.OrgID)
}

func TestPostgresStore_UnknownOrganization(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(ctx, t)

	vec := make([]float32, testutil.EmbeddingDimensions)
	vec[0] = 1
	_, err := s.Query(ctx, "never_onboarded", vec, 5)

	assert.ErrorIs(t, err, domain.ErrUnknownOrganization)
}

func TestPostgresStore_NamespaceConflictAbortsBatch(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(ctx, t)

	err := s.Write(ctx, "org_a", []domain.Chunk{
		pgChunk("org_a", "a1", 0, "fine", 0),
		pgChunk("org_b", "b1", 0, "crosses tenants", 1),
	})
	assert.ErrorIs(t, err, domain.ErrNamespaceConflict)

	vec := make([]float32, testutil.EmbeddingDimensions)
	vec[0] = 1
	_, err = s.Query(ctx, "org_a", vec, 5)
	assert.ErrorIs(t, err, domain.ErrUnknownOrganization)
}

func TestPostgresStore_DeleteAndExpire(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(ctx, t)

	old := pgChunk("org_a", "a1", 0, "stale", 0)
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, s.Write(ctx, "org_a", []domain.Chunk{old, pgChunk("org_a", "a2", 0, "fresh", 1)}))

	removed, err := s.Expire(ctx, "org_a", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, s.Delete(ctx, "org_a"))

	vec := make([]float32, testutil.EmbeddingDimensions)
	vec[0] = 1
	_, err = s.Query(ctx, "org_a", vec, 5)
	assert.ErrorIs(t, err, domain.ErrUnknownOrganization)
}
