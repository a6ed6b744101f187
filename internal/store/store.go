// Package store persists chunk embeddings in per-organization namespaces.
// Isolation is structural: every operation resolves the caller's orgID to its
// own namespace, and no operation can read or write across namespaces.
package store

import (
	"context"
	"time"

	"github.com/lumenlabs/handoff/internal/domain"
)

// Backend selects a TenantStore implementation via configuration.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendChromem  Backend = "chromem"
)

// IsValidBackend checks if a Backend is one of the known implementations.
func IsValidBackend(b Backend) bool {
	return b == BackendPostgres || b == BackendChromem
}

// DisposalPasses is the number of overwrite passes run before chunk data is
// removed during offboarding or expiry.
const DisposalPasses = 3

// TenantStore is the tenant-isolated chunk store. Implementations must be
// safe for concurrent use; writes to the same namespace are serialized.
//
// Every method takes the caller's orgID and operates only on that
// organization's namespace. Query against an organization that has never
// written returns domain.ErrUnknownOrganization, never results from a shared
// or default namespace.
type TenantStore interface {
	// Write stores a batch of chunks in the organization's namespace,
	// creating the namespace on first write. The batch is all-or-nothing.
	// A chunk whose OrgID does not match orgID fails the whole batch with
	// domain.ErrNamespaceConflict.
	Write(ctx context.Context, orgID string, chunks []domain.Chunk) error

	// Query returns up to topK chunks from the organization's namespace
	// ranked by similarity to the given vector. A known but empty namespace
	// yields an empty result.
	Query(ctx context.Context, orgID string, vector []float32, topK int) ([]domain.ScoredChunk, error)

	// Delete offboards the organization: chunk content and vectors are
	// overwritten in multiple passes before removal. If disposal cannot be
	// verified the error is domain.ErrSecureDisposal and the namespace is
	// not reported as deleted.
	Delete(ctx context.Context, orgID string) error

	// Expire disposes of chunks created before olderThan and returns how
	// many were removed. The namespace itself survives.
	Expire(ctx context.Context, orgID string, olderThan time.Time) (int, error)
}
