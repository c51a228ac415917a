// Package gemini embeds text through the Gemini embedding API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultBatchSize = 50
	batchDelay       = 700 * time.Millisecond
	retryDelay       = 6 * time.Second
	maxRetries       = 5
)

type embedFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

// Embedder implements domain.Embedder on top of genai.
type Embedder struct {
	model     string
	dimension int
	batchSize int
	embed     embedFunc

	// overridable in tests
	batchDelay time.Duration
	retryDelay time.Duration
}

// Config configures the Gemini embedder.
type Config struct {
	APIKeyEnv string
	Model     string
	Dimension int
	BatchSize int
}

// New creates an embedder backed by the Gemini API.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newEmbedder(cfg, client.Models.EmbedContent), nil
}

func newEmbedder(cfg Config, fn embedFunc) *Embedder {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Embedder{
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		batchSize:  cfg.BatchSize,
		embed:      fn,
		batchDelay: batchDelay,
		retryDelay: retryDelay,
	}
}

func (g *Embedder) Name() string { return "gemini" }

// Prepare is a no-op; the remote model needs no corpus statistics.
func (g *Embedder) Prepare(corpus []string) error { return nil }

func (g *Embedder) Dimension() int { return g.dimension }

// Embed sends texts in batches, pausing between batches and retrying on rate limits.
func (g *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	var config *genai.EmbedContentConfig
	if g.dimension > 0 {
		dim := int32(g.dimension)
		config = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	results := make([][]float64, 0, len(texts))
	for i := 0; i < len(texts); i += g.batchSize {
		if i > 0 {
			if err := wait(ctx, g.batchDelay); err != nil {
				return nil, err
			}
		}
		batch := texts[i:min(i+g.batchSize, len(texts))]

		contents := make([]*genai.Content, 0, len(batch))
		for _, text := range batch {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		var res *genai.EmbedContentResponse
		var err error
		for attempt := 0; attempt <= maxRetries; attempt++ {
			res, err = g.embed(ctx, g.model, contents, config)
			if err == nil {
				break
			}
			if !isRateLimitError(err) || attempt == maxRetries {
				return nil, fmt.Errorf("failed to embed text: %w", err)
			}
			if err := wait(ctx, g.retryDelay); err != nil {
				return nil, err
			}
		}

		if res == nil || len(res.Embeddings) != len(batch) {
			got := 0
			if res != nil {
				got = len(res.Embeddings)
			}
			return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", got, len(batch))
		}
		for _, emb := range res.Embeddings {
			results = append(results, toFloat64(emb.Values))
		}
	}
	return results, nil
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "429") || strings.Contains(s, "RESOURCE_EXHAUSTED") || strings.Contains(s, "quota")
}
