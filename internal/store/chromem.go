package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lumenlabs/handoff/internal/domain"
)

// ErrPrecomputedEmbeddings is returned by the embedding hook: this store only
// accepts vectors computed upstream and never calls an embedding provider
// itself.
var ErrPrecomputedEmbeddings = errors.New("embeddings are precomputed; store does not embed")

// ChromemStore is the embedded TenantStore backend. Each organization gets
// its own chromem collection named by NamespaceForOrg, so cross-tenant reads
// are impossible by construction. With an empty path the store is in-memory,
// which the tests rely on.
type ChromemStore struct {
	db         *chromem.DB
	dimensions int

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewChromemStore creates a ChromemStore. An empty path selects the
// in-memory database; otherwise state persists under path.
func NewChromemStore(path string, compress bool, dimensions int) (*ChromemStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	return &ChromemStore{
		db:         db,
		dimensions: dimensions,
		locks:      make(map[string]*sync.RWMutex),
	}, nil
}

func noEmbed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrPrecomputedEmbeddings
}

// registryCollection maps namespaces back to org IDs. The namespace hash is
// one-way, so without this the retention sweeper could not enumerate
// organizations. Never exposed through Query; org namespaces all start with
// "org_" and cannot collide with it.
const registryCollection = "namespace_registry"

// nsLock returns the lock serializing writes to one namespace.
func (s *ChromemStore) nsLock(namespace string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[namespace]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[namespace] = l
	}
	return l
}

// Write stores a chunk batch in the organization's collection, creating it
// on first use. The batch is validated in full before anything is added, and
// a failed or canceled add is rolled back under the namespace write lock, so
// no part of a failed batch is ever retrievable and Write returning nil means
// the whole batch is committed.
func (s *ChromemStore) Write(ctx context.Context, orgID string, chunks []domain.Chunk) error {
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
	if err := ctx.Err(); err != nil {
		return err
	}

	namespace := NamespaceForOrg(orgID)
	lock := s.nsLock(namespace)
	lock.Lock()
	defer lock.Unlock()

	created := s.db.GetCollection(namespace, noEmbed) == nil
	collection, err := s.db.GetOrCreateCollection(namespace, map[string]string{"org_id": orgID}, noEmbed)
	if err != nil {
		return fmt.Errorf("creating namespace %s: %w", namespace, err)
	}
	if created {
		if err := s.registerOrg(ctx, namespace, orgID); err != nil {
			s.rollbackWrite(namespace, collection, nil, true)
			return fmt.Errorf("registering namespace %s: %w", namespace, err)
		}
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata: map[string]string{
				"org_id":         c.OrgID,
				"source_item_id": c.SourceItemID,
				"chunk_index":    strconv.Itoa(c.ChunkIndex),
				"created_at":     c.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
		}
	}

	err = collection.AddDocuments(ctx, docs, 1)
	if err == nil {
		// A cancellation racing the add can surface as a nil error with
		// only part of the batch in place.
		err = ctx.Err()
	}
	if err != nil {
		s.rollbackWrite(namespace, collection, docs, created)
		return fmt.Errorf("writing to namespace %s: %w", namespace, err)
	}
	return nil
}

// rollbackWrite restores the pre-write state after a failed batch, while the
// namespace write lock is still held. It runs on its own context so the
// caller's expired deadline cannot also abort the restore.
func (s *ChromemStore) rollbackWrite(namespace string, collection *chromem.Collection, docs []chromem.Document, created bool) {
	ctx := context.Background()
	if created {
		if err := s.db.DeleteCollection(namespace); err != nil {
			log.Printf("store: removing namespace %s after failed first write: %v", namespace, err)
		}
		if registry := s.db.GetCollection(registryCollection, noEmbed); registry != nil {
			if err := registry.Delete(ctx, nil, nil, namespace); err != nil {
				log.Printf("store: removing registry entry for %s after failed first write: %v", namespace, err)
			}
		}
		return
	}
	if len(docs) == 0 {
		return
	}
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	if err := collection.Delete(ctx, nil, nil, ids...); err != nil {
		log.Printf("store: removing failed batch from namespace %s: %v", namespace, err)
	}
}

// registerOrg records the namespace to orgID mapping for ListOrgs.
func (s *ChromemStore) registerOrg(ctx context.Context, namespace, orgID string) error {
	registry, err := s.db.GetOrCreateCollection(registryCollection, nil, noEmbed)
	if err != nil {
		return fmt.Errorf("opening namespace registry: %w", err)
	}
	return registry.AddDocuments(ctx, []chromem.Document{{
		ID:        namespace,
		Content:   orgID,
		Embedding: unitVector(s.dimensions),
	}}, 1)
}

// ListOrgs returns the IDs of every organization with a namespace.
func (s *ChromemStore) ListOrgs(ctx context.Context) ([]string, error) {
	registry := s.db.GetCollection(registryCollection, noEmbed)
	if registry == nil {
		return nil, nil
	}
	count := registry.Count()
	if count == 0 {
		return nil, nil
	}
	results, err := registry.QueryEmbedding(ctx, unitVector(s.dimensions), count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing namespace registry: %w", err)
	}
	orgs := make([]string, 0, len(results))
	for _, r := range results {
		orgs = append(orgs, r.Content)
	}
	sort.Strings(orgs)
	return orgs, nil
}

// Query returns the topK most similar chunks from the organization's
// collection. Missing collection means the organization never onboarded.
func (s *ChromemStore) Query(ctx context.Context, orgID string, vector []float32, topK int) ([]domain.ScoredChunk, error) {
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
	lock := s.nsLock(namespace)
	lock.RLock()
	defer lock.RUnlock()

	collection := s.db.GetCollection(namespace, noEmbed)
	if collection == nil {
		return nil, domain.ErrUnknownOrganization
	}

	// chromem requires nResults <= document count.
	count := collection.Count()
	if count == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if topK > count {
		topK = count
	}

	results, err := collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying namespace %s: %w", namespace, err)
	}

	scored := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		scored = append(scored, domain.ScoredChunk{
			Chunk: chunkFromDocument(orgID, r.ID, r.Content, r.Embedding, r.Metadata),
			Score: r.Similarity,
		})
	}
	return scored, nil
}

// Delete offboards the organization: every document is overwritten
// DisposalPasses times before the collection is removed.
func (s *ChromemStore) Delete(ctx context.Context, orgID string) error {
	if orgID == "" {
		return domain.ErrMissingOrgID
	}

	namespace := NamespaceForOrg(orgID)
	lock := s.nsLock(namespace)
	lock.Lock()
	defer lock.Unlock()

	collection := s.db.GetCollection(namespace, noEmbed)
	if collection == nil {
		return domain.ErrUnknownOrganization
	}

	ids, lengths, _, err := s.listDocuments(ctx, collection)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal,
			"listing documents for disposal", err)
	}
	if err := s.overwriteDocuments(ctx, collection, orgID, ids, lengths); err != nil {
		return err
	}

	if err := s.db.DeleteCollection(namespace); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal,
			"removing namespace after overwrite", err)
	}
	if registry := s.db.GetCollection(registryCollection, noEmbed); registry != nil {
		if err := registry.Delete(ctx, nil, nil, namespace); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal,
				"removing namespace registry entry", err)
		}
	}

	s.mu.Lock()
	delete(s.locks, namespace)
	s.mu.Unlock()
	return nil
}

// Expire disposes of documents created before olderThan, leaving the
// namespace in place.
func (s *ChromemStore) Expire(ctx context.Context, orgID string, olderThan time.Time) (int, error) {
	if orgID == "" {
		return 0, domain.ErrMissingOrgID
	}

	namespace := NamespaceForOrg(orgID)
	lock := s.nsLock(namespace)
	lock.Lock()
	defer lock.Unlock()

	collection := s.db.GetCollection(namespace, noEmbed)
	if collection == nil {
		return 0, domain.ErrUnknownOrganization
	}

	ids, lengths, createdAts, err := s.listDocuments(ctx, collection)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal,
			"listing documents for expiry", err)
	}

	var expiredIDs []string
	var expiredLengths []int
	for i := range ids {
		if createdAts[i].Before(olderThan) {
			expiredIDs = append(expiredIDs, ids[i])
			expiredLengths = append(expiredLengths, lengths[i])
		}
	}
	if len(expiredIDs) == 0 {
		return 0, nil
	}

	if err := s.overwriteDocuments(ctx, collection, orgID, expiredIDs, expiredLengths); err != nil {
		return 0, err
	}
	if err := collection.Delete(ctx, nil, nil, expiredIDs...); err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal,
			"removing expired documents after overwrite", err)
	}
	return len(expiredIDs), nil
}

// listDocuments enumerates every document in the collection by querying with
// an arbitrary unit vector for the full count.
func (s *ChromemStore) listDocuments(ctx context.Context, collection *chromem.Collection) ([]string, []int, []time.Time, error) {
	count := collection.Count()
	if count == 0 {
		return nil, nil, nil, nil
	}

	results, err := collection.QueryEmbedding(ctx, unitVector(s.dimensions), count, nil, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	ids := make([]string, len(results))
	lengths := make([]int, len(results))
	createdAts := make([]time.Time, len(results))
	for i, r := range results {
		ids[i] = r.ID
		lengths[i] = len(r.Content)
		if ts, err := time.Parse(time.RFC3339Nano, r.Metadata["created_at"]); err == nil {
			createdAts[i] = ts
		}
	}
	return ids, lengths, createdAts, nil
}

// overwriteDocuments replaces content and vectors of the given documents
// DisposalPasses times. Re-adding a document under the same ID replaces it,
// so after the final pass nothing of the original text or embedding remains.
func (s *ChromemStore) overwriteDocuments(ctx context.Context, collection *chromem.Collection, orgID string, ids []string, lengths []int) error {
	if len(ids) == 0 {
		return nil
	}

	for pass := 0; pass < DisposalPasses; pass++ {
		fill := string(rune('0' + pass))
		docs := make([]chromem.Document, len(ids))
		for i, id := range ids {
			length := lengths[i]
			if length == 0 {
				length = 1
			}
			docs[i] = chromem.Document{
				ID:        id,
				Content:   strings.Repeat(fill, length),
				Embedding: unitVector(s.dimensions),
				Metadata:  map[string]string{"org_id": orgID},
			}
		}
		if err := collection.AddDocuments(ctx, docs, 1); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeSecureDisposal,
				fmt.Sprintf("overwrite pass %d failed", pass+1), err)
		}
	}
	return nil
}

func chunkFromDocument(orgID, id, content string, embedding []float32, metadata map[string]string) domain.Chunk {
	chunkIndex, _ := strconv.Atoi(metadata["chunk_index"])
	createdAt, _ := time.Parse(time.RFC3339Nano, metadata["created_at"])
	return domain.Chunk{
		ID:           id,
		OrgID:        orgID,
		SourceItemID: metadata["source_item_id"],
		ChunkIndex:   chunkIndex,
		Text:         content,
		Embedding:    embedding,
		CreatedAt:    createdAt,
	}
}

func unitVector(dimensions int) []float32 {
	v := make([]float32, dimensions)
	v[0] = 1
	return v
}
