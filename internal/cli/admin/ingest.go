package admin

import (
	"context"
	"fmt"
	"os"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/lumenlabs/handoff/internal/classifier"
	"github.com/lumenlabs/handoff/internal/config"
	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/openai"
	"github.com/lumenlabs/handoff/internal/sanitizer"
	"github.com/lumenlabs/handoff/internal/service"
)

func IngestCmd() *cobra.Command {
	var (
		sourceType string
		subject    string
	)

	cmd := &cobra.Command{
		Use:   "ingest <org-id> <file>",
		Short: "Ingest one item from a file",
		Long:  "Run a file's content through the full pipeline: classify, sanitize, chunk, embed, store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(args[0], args[1], sourceType, subject)
		},
	}

	cmd.Flags().StringVar(&sourceType, "source-type", "note", "Item source type (email, note, or document)")
	cmd.Flags().StringVar(&subject, "subject", "", "Item subject line")

	return cmd
}

func runIngest(orgID, path, sourceType, subject string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("HANDOFF_OPENAI_API_KEY is required to ingest")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	san, err := sanitizer.New(sanitizer.Config{
		Rules:            sanitizer.DefaultRules(),
		MaxContentLength: cfg.MaxContentLength,
	})
	if err != nil {
		return fmt.Errorf("failed to build sanitizer: %w", err)
	}

	var cls classifier.Classifier
	switch cfg.ClassifierMode {
	case "model":
		cls = classifier.NewModelClassifier(cfg.OpenAIAPIKey, cfg.ClassifierModel, san)
	default:
		cls = classifier.NewRulesClassifier()
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      gopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	ingestSvc := service.NewIngestService(cls, san, embeddingClient, st, nil, service.IngestConfig{
		ClassifierThreshold: cfg.ClassifierThreshold,
	})

	item := domain.NewRawItem(orgID, domain.SourceType(sourceType), subject, string(content))
	result, err := ingestSvc.Ingest(ctx, item)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if !result.Stored {
		fmt.Printf("Item %s rejected: %s\n", result.SourceItemID, result.RejectionReason)
		return nil
	}

	fmt.Printf("Item %s stored: %d chunks, %d redactions", result.SourceItemID, result.ChunkCount, result.Report.TotalRedactions())
	if result.Report.Truncated {
		fmt.Print(" (truncated)")
	}
	fmt.Println()
	return nil
}
