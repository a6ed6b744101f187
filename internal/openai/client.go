// Package openai wraps the OpenAI embedding API behind a small interface so
// the pipeline can swap in fakes. All failures surface as
// domain.ErrEmbeddingUnavailable after a bounded retry.
package openai

import (
	"context"
	"errors"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lumenlabs/handoff/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultMaxAttempts bounds the retry loop; retries never run forever.
	DefaultMaxAttempts = 3
	// DefaultBaseBackoff is the initial delay between attempts; it doubles per
	// attempt.
	DefaultBaseBackoff = 200 * time.Millisecond
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client wraps the OpenAI API client with dimension checking and retry.
type Client struct {
	api         EmbeddingAPI
	dimensions  int
	maxAttempts int
	baseBackoff time.Duration
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	MaxAttempts         int
	BaseBackoff         time.Duration
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	c := &Client{
		api:         NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions:  cfg.EmbeddingDimensions,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
	}
	c.fillDefaults()
	return c
}

// NewClientWithAPI creates a Client over an explicit EmbeddingAPI, used by
// tests and the deterministic local embedder.
func NewClientWithAPI(api EmbeddingAPI, dimensions int) *Client {
	c := &Client{api: api, dimensions: dimensions}
	c.fillDefaults()
	return c
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

func (c *Client) fillDefaults() {
	if c.dimensions <= 0 {
		c.dimensions = DefaultEmbeddingDimensions
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = DefaultBaseBackoff
	}
}

// Dimensions returns the expected embedding width.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateEmbedding generates an embedding for the given text, retrying with
// exponential backoff. Exhausted retries and dimension mismatches both come
// back as domain.ErrEmbeddingUnavailable so the caller drops the item without
// storing partial state.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, domain.NewDomainErrorWithCause(
					domain.ErrCodeEmbeddingUnavailable, "embedding request canceled", ctx.Err())
			case <-time.After(delay):
			}
		}

		embedding, err := c.api.CreateEmbeddings(ctx, text)
		if err != nil {
			lastErr = err
			continue
		}
		if len(embedding) != c.dimensions {
			return nil, domain.NewDomainError(
				domain.ErrCodeEmbeddingUnavailable, "embedding has wrong dimensions")
		}
		return embedding, nil
	}

	return nil, domain.NewDomainErrorWithCause(
		domain.ErrCodeEmbeddingUnavailable, "embedding service unavailable after retries", lastErr)
}
