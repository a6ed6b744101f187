package domain

// ScoredChunk pairs a retrieved chunk with its relevance score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// RetrievalResult is the ranked output of one query against one
// organization's namespace. Ephemeral; produced per query, never persisted.
type RetrievalResult struct {
	OrgID  string
	Query  string
	Chunks []ScoredChunk
}

// CoverageStatus marks whether an expected topic is backed by evidence.
type CoverageStatus string

const (
	CoverageSupported CoverageStatus = "supported"
	CoverageGap       CoverageStatus = "gap"
)

// TopicCoverage reports coverage for one expected topic.
type TopicCoverage struct {
	Topic            string
	Status           CoverageStatus
	SupportingChunks []ScoredChunk
}

// GapReport lists coverage per expected topic. Ephemeral output.
type GapReport struct {
	OrgID  string
	Topics []TopicCoverage
}

// Gaps returns the topics with no sufficient supporting evidence.
func (r *GapReport) Gaps() []string {
	var gaps []string
	for _, t := range r.Topics {
		if t.Status == CoverageGap {
			gaps = append(gaps, t.Topic)
		}
	}
	return gaps
}
