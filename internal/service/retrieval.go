package service

import (
	"context"
	"sort"
	"strings"

	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/store"
)

const (
	defaultTopK                = 5
	defaultCandidateMultiplier = 4
	defaultMinCandidates       = 20
	defaultMaxCandidates       = 200
	defaultSimilarityThreshold = 0.70

	lexicalWeight = 0.25
)

// Embedder turns text into a vector. Satisfied by openai.Client.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RetrievalConfig controls candidate fetch width and gap thresholds.
type RetrievalConfig struct {
	TopK                int
	CandidateMultiplier int
	SimilarityThreshold float32
}

func (c *RetrievalConfig) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = defaultCandidateMultiplier
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = defaultSimilarityThreshold
	}
}

// RetrievalService answers queries and audits topic coverage against one
// organization's namespace.
type RetrievalService struct {
	store     store.TenantStore
	embedding Embedder
	cfg       RetrievalConfig
}

// NewRetrievalService creates a RetrievalService.
func NewRetrievalService(st store.TenantStore, embedding Embedder, cfg RetrievalConfig) *RetrievalService {
	cfg.applyDefaults()
	return &RetrievalService{store: st, embedding: embedding, cfg: cfg}
}

// Retrieve runs the two-stage search: a broad vector fetch over the
// organization's namespace, then a lexical re-rank of the candidates before
// truncating to topK. Ties are broken by the newer source item so repeated
// queries return a stable order.
func (s *RetrievalService) Retrieve(ctx context.Context, orgID, query string) (*domain.RetrievalResult, error) {
	if orgID == "" {
		return nil, domain.ErrMissingOrgID
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}

	vector, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.Query(ctx, orgID, vector, s.candidateLimit())
	if err != nil {
		return nil, err
	}

	reranked := rerankCandidates(query, candidates)
	if len(reranked) > s.cfg.TopK {
		reranked = reranked[:s.cfg.TopK]
	}

	return &domain.RetrievalResult{
		OrgID:  orgID,
		Query:  query,
		Chunks: reranked,
	}, nil
}

// AnalyzeGaps checks each expected topic for supporting evidence: a topic is
// covered when at least one stored chunk scores at or above the similarity
// threshold against the topic text. An onboarded but empty namespace reports
// every topic as a gap.
func (s *RetrievalService) AnalyzeGaps(ctx context.Context, orgID string, expectedTopics []string) (*domain.GapReport, error) {
	if orgID == "" {
		return nil, domain.ErrMissingOrgID
	}
	if len(expectedTopics) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "at least one expected topic is required")
	}

	report := &domain.GapReport{OrgID: orgID}
	for _, topic := range expectedTopics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}

		vector, err := s.embedding.GenerateEmbedding(ctx, topic)
		if err != nil {
			return nil, err
		}

		candidates, err := s.store.Query(ctx, orgID, vector, s.cfg.TopK)
		if err != nil {
			return nil, err
		}

		var supporting []domain.ScoredChunk
		for _, c := range candidates {
			if c.Score >= s.cfg.SimilarityThreshold {
				supporting = append(supporting, c)
			}
		}

		coverage := domain.TopicCoverage{Topic: topic, Status: domain.CoverageGap}
		if len(supporting) > 0 {
			coverage.Status = domain.CoverageSupported
			coverage.SupportingChunks = supporting
		}
		report.Topics = append(report.Topics, coverage)
	}

	return report, nil
}

func (s *RetrievalService) candidateLimit() int {
	limit := s.cfg.TopK * s.cfg.CandidateMultiplier
	if limit < defaultMinCandidates {
		limit = defaultMinCandidates
	}
	if limit > defaultMaxCandidates {
		limit = defaultMaxCandidates
	}
	return limit
}

// rerankCandidates blends the vector score with lexical term overlap and
// re-sorts. The blend keeps vector similarity dominant; overlap only nudges
// candidates that actually mention the query's terms.
func rerankCandidates(query string, candidates []domain.ScoredChunk) []domain.ScoredChunk {
	queryTerms := tokenize(query)

	out := make([]domain.ScoredChunk, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Score += lexicalWeight * termOverlap(queryTerms, tokenize(out[i].Chunk.Text))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		// ULIDs sort by creation time, so the larger ID is the newer item.
		return out[i].Chunk.SourceItemID > out[j].Chunk.SourceItemID
	})
	return out
}

// termOverlap returns the fraction of query terms present in the chunk.
func termOverlap(queryTerms, chunkTerms []string) float32 {
	if len(queryTerms) == 0 {
		return 0
	}
	present := make(map[string]bool, len(chunkTerms))
	for _, t := range chunkTerms {
		present[t] = true
	}
	hits := 0
	for _, t := range queryTerms {
		if present[t] {
			hits++
		}
	}
	return float32(hits) / float32(len(queryTerms))
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}
