package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/lumenlabs/handoff/internal/classifier"
	"github.com/lumenlabs/handoff/internal/store"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Store backend: "postgres" or "chromem".
	StoreBackend string `envconfig:"STORE_BACKEND" default:"postgres"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	ChromemPath  string `envconfig:"CHROMEM_PATH"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Classifier: "rules" or "model".
	ClassifierMode      string  `envconfig:"CLASSIFIER" default:"rules"`
	ClassifierModel     string  `envconfig:"CLASSIFIER_MODEL"`
	ClassifierThreshold float64 `envconfig:"CLASSIFIER_THRESHOLD" default:"0.7"`

	MaxContentLength int `envconfig:"MAX_CONTENT_LENGTH" default:"2000"`

	RetrievalTopK       int     `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	CandidateMultiplier int     `envconfig:"CANDIDATE_MULTIPLIER" default:"4"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.7"`

	// Retention sweeper; zero max age disables it.
	RetentionMaxAge   time.Duration `envconfig:"RETENTION_MAX_AGE" default:"0"`
	RetentionInterval time.Duration `envconfig:"RETENTION_INTERVAL" default:"1h"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"handoff-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN              string  `envconfig:"SENTRY_DSN"`
	SentryEnvironment      string  `envconfig:"SENTRY_ENVIRONMENT"`
	SentryTracesSampleRate float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("HANDOFF", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks cross-field requirements that envconfig tags cannot express.
func (c *Config) Validate() error {
	if !store.IsValidBackend(store.Backend(c.StoreBackend)) {
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if store.Backend(c.StoreBackend) == store.BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("HANDOFF_DATABASE_URL is required for the postgres backend")
	}

	if !classifier.IsValidMode(classifier.Mode(c.ClassifierMode)) {
		return fmt.Errorf("unknown classifier %q", c.ClassifierMode)
	}
	if classifier.Mode(c.ClassifierMode) == classifier.ModeModel && c.OpenAIAPIKey == "" {
		return fmt.Errorf("HANDOFF_OPENAI_API_KEY is required for the model classifier")
	}

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.ClassifierThreshold <= 0 || c.ClassifierThreshold > 1 {
		return fmt.Errorf("classifier threshold must be in (0, 1], got %v", c.ClassifierThreshold)
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
