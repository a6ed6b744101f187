package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	gopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/lumenlabs/handoff/internal/api/handlers"
	"github.com/lumenlabs/handoff/internal/classifier"
	"github.com/lumenlabs/handoff/internal/config"
	"github.com/lumenlabs/handoff/internal/jobs"
	"github.com/lumenlabs/handoff/internal/openai"
	"github.com/lumenlabs/handoff/internal/sanitizer"
	"github.com/lumenlabs/handoff/internal/server"
	"github.com/lumenlabs/handoff/internal/service"
	"github.com/lumenlabs/handoff/internal/storage"
	"github.com/lumenlabs/handoff/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the handoff API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("HANDOFF_OPENAI_API_KEY is required to serve")
	}

	if cfg.SentryDSN != "" {
		environment := cfg.SentryEnvironment
		if environment == "" {
			environment = "development"
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: cfg.SentryTracesSampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if cfg.StoreBackend == "postgres" && !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	log.Printf("store backend ready (%s)", cfg.StoreBackend)

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      gopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

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

	var archiver service.Archiver
	var archivePurger handlers.ArchivePurger
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiver = s3Client
		archivePurger = s3Client
	}

	ingestSvc := service.NewIngestService(cls, san, embeddingClient, st, archiver, service.IngestConfig{
		ClassifierThreshold: cfg.ClassifierThreshold,
	})
	retrievalSvc := service.NewRetrievalService(st, embeddingClient, service.RetrievalConfig{
		TopK:                cfg.RetrievalTopK,
		CandidateMultiplier: cfg.CandidateMultiplier,
		SimilarityThreshold: float32(cfg.SimilarityThreshold),
	})

	var retentionWorker *jobs.Worker
	if cfg.RetentionMaxAge > 0 {
		sweeper := jobs.NewRetentionSweeper(st, cfg.RetentionMaxAge)
		retentionWorker = jobs.NewWorker(sweeper, cfg.RetentionInterval)
		go retentionWorker.Start(ctx)
		log.Printf("retention sweeper started (max age %s)", cfg.RetentionMaxAge)
	}

	routerCfg := server.RouterConfig{
		ItemHandler: handlers.NewItemHandler(ingestSvc),
		AskHandler:  handlers.NewAskHandler(retrievalSvc),
		OrgHandler:  handlers.NewOrgHandler(st, archivePurger),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if retentionWorker != nil {
		retentionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
