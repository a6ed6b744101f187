package service

import (
	"context"
	"errors"
	"log"

	"github.com/getsentry/sentry-go"

	"github.com/lumenlabs/handoff/internal/classifier"
	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/sanitizer"
	"github.com/lumenlabs/handoff/internal/store"
	"github.com/lumenlabs/handoff/internal/telemetry"
)

// Rejection reasons reported to the caller when an item is dropped.
const (
	RejectionNotWork              = "not_work_related"
	RejectionLowConfidence        = "low_confidence"
	RejectionClassificationFailed = "classification_failed"
)

// Archiver persists a copy of the sanitized item outside the vector store.
// Optional; a nil archiver disables archiving.
type Archiver interface {
	ArchiveItem(ctx context.Context, item *domain.SanitizedItem) error
}

// IngestConfig controls the admission gate and chunking.
type IngestConfig struct {
	ClassifierThreshold float64
	Chunking            ChunkConfig
}

// IngestResult reports what happened to one item. Exactly one of Stored or
// RejectionReason is meaningful.
type IngestResult struct {
	SourceItemID    string
	Stored          bool
	ChunkCount      int
	Report          domain.RedactionReport
	RejectionReason string
}

// IngestService runs the pipeline for one item: classify, gate, sanitize,
// validate, chunk, embed, store. Content crosses the process boundary only
// after sanitization has been re-verified.
type IngestService struct {
	classifier classifier.Classifier
	sanitizer  *sanitizer.Sanitizer
	embedding  Embedder
	store      store.TenantStore
	archive    Archiver
	cfg        IngestConfig
}

// NewIngestService creates an IngestService. archive may be nil.
func NewIngestService(
	cls classifier.Classifier,
	san *sanitizer.Sanitizer,
	embedding Embedder,
	st store.TenantStore,
	archive Archiver,
	cfg IngestConfig,
) *IngestService {
	if cfg.ClassifierThreshold <= 0 {
		cfg.ClassifierThreshold = 0.7
	}
	return &IngestService{
		classifier: cls,
		sanitizer:  san,
		embedding:  embedding,
		store:      st,
		archive:    archive,
		cfg:        cfg,
	}
}

// Ingest consumes one raw item. Items that do not pass the gate come back as
// a rejection, not an error; errors mean the pipeline itself failed and the
// item was not stored.
func (s *IngestService) Ingest(ctx context.Context, item *domain.RawItem) (*IngestResult, error) {
	if err := domain.ValidateRawItem(item); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		OrgID:  item.OrgID,
		ItemID: item.ID,
	})
	defer span.End()

	label, err := s.classifier.Classify(ctx, item)
	if err != nil {
		if errors.Is(err, domain.ErrClassificationFailure) {
			// Fail closed: an unclassifiable item is dropped, not stored.
			return &IngestResult{SourceItemID: item.ID, RejectionReason: RejectionClassificationFailed}, nil
		}
		span.SetError(err)
		return nil, err
	}
	if !label.Admits(s.cfg.ClassifierThreshold) {
		reason := RejectionNotWork
		if label.Category == domain.CategoryWork {
			reason = RejectionLowConfidence
		}
		return &IngestResult{SourceItemID: item.ID, RejectionReason: reason}, nil
	}

	sanitized, err := s.sanitizer.SanitizeItem(item)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !s.sanitizer.Validate(sanitized.Content) {
		err := domain.ErrPIIResidual
		span.SetError(err)
		return nil, err
	}

	chunks := BuildChunks(sanitized, s.cfg.Chunking)
	for i := range chunks {
		// Last check before content leaves the process.
		if !s.sanitizer.Validate(chunks[i].Text) {
			err := domain.ErrPIIResidual
			span.SetError(err)
			return nil, err
		}
		vector, err := s.embedding.GenerateEmbedding(ctx, chunks[i].Text)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		chunks[i].Embedding = vector
	}

	if err := s.store.Write(ctx, item.OrgID, chunks); err != nil {
		span.SetError(err)
		return nil, err
	}

	if s.archive != nil {
		if err := s.archive.ArchiveItem(ctx, sanitized); err != nil {
			// Chunks are already committed; archiving is best effort.
			log.Printf("ingest: archive failed for item %s: %v", item.ID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	span.SetStatus(sentry.SpanStatusOK)
	return &IngestResult{
		SourceItemID: item.ID,
		Stored:       true,
		ChunkCount:   len(chunks),
		Report:       sanitized.Report,
	}, nil
}
