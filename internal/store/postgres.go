package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lumenlabs/handoff/internal/domain"
)

// PostgresStore is the pgvector-backed TenantStore. Rows are keyed by
// namespace; writes take a per-namespace advisory lock inside their
// transaction, so a batch commits atomically and writers to the same
// namespace are serialized by the database itself.
type PostgresStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPostgresStore creates a PostgresStore over the given pool.
func NewPostgresStore(pool *pgxpool.Pool, dimensions int) (*PostgresStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &PostgresStore{pool: pool, dimensions: dimensions}, nil
}

// Write stores a chunk batch in one transaction.
func (s *PostgresStore) Write(ctx context.Context, orgID string, chunks []domain.Chunk) error {
	if err := domain.ValidateChunkBatch(orgID, chunks); err != nil {
		return err
	}
	for i := range chunks {
		if len(chunks[i].Embedding) != s.dimensions {
			return domain.NewDomainError(domain.ErrCodeValidation,
				fmt.Sprintf("chunk %d embedding has %d dimensions, want %d",
					i, len(chunks[i].Embedding), s.dimensions))
		}
	}

	namespace := NamespaceForOrg(orgID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockNamespace(ctx, tx, namespace); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO namespaces (namespace, org_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (namespace) DO NOTHING`,
		namespace, orgID, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks
				(id, namespace, org_id, source_item_id, chunk_index, content, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID,
			namespace,
			c.OrgID,
			c.SourceItemID,
			c.ChunkIndex,
			c.Text,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Query returns the topK most similar chunks from the organization's
// namespace, ranked by cosine similarity with newest source item winning
// ties.
func (s *PostgresStore) Query(ctx context.Context, orgID string, vector []float32, topK int) ([]domain.ScoredChunk, error) {
	if orgID == "" {
		return nil, domain.ErrMissingOrgID
	}
	if len(vector) != s.dimensions {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("query vector has %d dimensions, want %d", len(vector), s.dimensions))
	}
	if topK <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "topK must be positive")
	}

	namespace := NamespaceForOrg(orgID)
	if err := s.requireNamespace(ctx, namespace); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, source_item_id, chunk_index, content, created_at,
		       1.0 - (embedding <=> $1) AS score
		FROM chunks
		WHERE namespace = $2 AND embedding IS NOT NULL
		ORDER BY score DESC, source_item_id DESC
		LIMIT $3`,
		pgvector.NewVector(vector), namespace, topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, topK)
	for rows.Next() {
		var sc domain.ScoredChunk
		var score float64
		if err := rows.Scan(
			&sc.Chunk.ID,
			&sc.Chunk.SourceItemID,
			&sc.Chunk.ChunkIndex,
			&sc.Chunk.Text,
			&sc.Chunk.CreatedAt,
			&score,
		); err != nil {
			return nil, err
		}
		sc.Chunk.OrgID = orgID
		sc.Score = float32(score)
		results = append(results, sc)
	}
	return results, rows.Err()
}

// Delete offboards the organization inside one transaction: overwrite
// passes, then row removal. A rollback leaves the namespace intact and the
// error reports disposal failure rather than success.
func (s *PostgresStore) Delete(ctx context.Context, orgID string) error {
	if orgID == "" {
		return domain.ErrMissingOrgID
	}

	namespace := NamespaceForOrg(orgID)
	if err := s.requireNamespace(ctx, namespace); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "starting disposal", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockNamespace(ctx, tx, namespace); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "locking namespace", err)
	}

	if err := s.overwriteRows(ctx, tx, namespace, time.Time{}); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE namespace = $1`, namespace); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "removing chunks", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM namespaces WHERE namespace = $1`, namespace); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "removing namespace", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "committing disposal", err)
	}
	return nil
}

// Expire disposes of chunks created before olderThan.
func (s *PostgresStore) Expire(ctx context.Context, orgID string, olderThan time.Time) (int, error) {
	if orgID == "" {
		return 0, domain.ErrMissingOrgID
	}

	namespace := NamespaceForOrg(orgID)
	if err := s.requireNamespace(ctx, namespace); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "starting expiry", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockNamespace(ctx, tx, namespace); err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "locking namespace", err)
	}

	if err := s.overwriteRows(ctx, tx, namespace, olderThan); err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM chunks WHERE namespace = $1 AND created_at < $2`,
		namespace, olderThan,
	)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "removing expired chunks", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal, "committing expiry", err)
	}
	return int(tag.RowsAffected()), nil
}

// overwriteRows runs the disposal overwrite passes. A zero olderThan means
// every row in the namespace.
func (s *PostgresStore) overwriteRows(ctx context.Context, tx pgx.Tx, namespace string, olderThan time.Time) error {
	blank := pgvector.NewVector(unitVector(s.dimensions))
	for pass := 0; pass < DisposalPasses; pass++ {
		fill := string(rune('0' + pass))
		var err error
		if olderThan.IsZero() {
			_, err = tx.Exec(ctx,
				`UPDATE chunks
				 SET content = repeat($2, greatest(length(content), 1)), embedding = $3
				 WHERE namespace = $1`,
				namespace, fill, blank,
			)
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE chunks
				 SET content = repeat($2, greatest(length(content), 1)), embedding = $3
				 WHERE namespace = $1 AND created_at < $4`,
				namespace, fill, blank, olderThan,
			)
		}
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal,
				fmt.Sprintf("overwrite pass %d failed", pass+1), err)
		}
	}
	return nil
}

// ListOrgs returns the IDs of every organization with a namespace.
func (s *PostgresStore) ListOrgs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT org_id FROM namespaces ORDER BY org_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var orgID string
		if err := rows.Scan(&orgID); err != nil {
			return nil, err
		}
		orgs = append(orgs, orgID)
	}
	return orgs, rows.Err()
}

func (s *PostgresStore) requireNamespace(ctx context.Context, namespace string) error {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM namespaces WHERE namespace = $1`, namespace,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUnknownOrganization
	}
	return err
}

// lockNamespace serializes transactions touching one namespace. The lock is
// released automatically at commit or rollback.
func lockNamespace(ctx context.Context, tx pgx.Tx, namespace string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, namespace)
	return err
}
