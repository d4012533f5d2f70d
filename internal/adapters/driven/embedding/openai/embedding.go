// Package openai embeds chunks and queries with the OpenAI embeddings API.
package openai

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-study/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults applied by NewEmbeddingService.
const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultModel             = "text-embedding-3-small"
	DefaultTimeout           = 60 * time.Second
	DefaultBatchSize         = 256
	DefaultRequestsPerSecond = 5

	fallbackDimensions = 1536
)

// Config configures the service. APIKey is required; other zero fields
// take the defaults above.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3-* vectors. Zero uses the
	// model's native size.
	Dimensions int

	BatchSize         int
	RequestsPerSecond float64
}

// EmbeddingService embeds text with /embeddings, one request per batch.
type EmbeddingService struct {
	api        *httpapi.Client
	model      string
	dimensions int
	batchSize  int
	shorten    bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type datum struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Data  []datum `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrInvalidInput)
	}
	model := cmp.Or(cfg.Model, DefaultModel)
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = cmp.Or(domain.EmbeddingDimensions()[model], fallbackDimensions)
	}

	return &EmbeddingService{
		api: httpapi.New(httpapi.Options{
			Provider:          "openai",
			BaseURL:           cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Timeout:           cmp.Or(cfg.Timeout, DefaultTimeout),
			RequestsPerSecond: rps,
			Header:            http.Header{"Authorization": {"Bearer " + cfg.APIKey}},
		}),
		model:      model,
		dimensions: dims,
		batchSize:  batch,
		shorten:    strings.HasPrefix(model, "text-embedding-3-"),
	}, nil
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in sequential batches, in input order. The whole
// call fails if any batch fails.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		vectors, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embed sends one request. The API may return data out of order, so each
// vector is placed by its index.
func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		req.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.api.PostJSON(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: openai error: %s", domain.ErrProviderUnavailable, resp.Error.Message)
	}
	logger.Debug("openai: embedded %d texts, %d tokens", len(texts), resp.Usage.TotalTokens)

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		switch {
		case d.Index < 0 || d.Index >= len(texts):
			return nil, fmt.Errorf("%w: openai returned out of range index %d", domain.ErrProviderUnavailable, d.Index)
		case len(d.Embedding) != s.dimensions:
			return nil, fmt.Errorf("%w: openai returned %d dimensions, expected %d",
				domain.ErrProviderUnavailable, len(d.Embedding), s.dimensions)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	if i := slices.IndexFunc(vectors, func(v []float32) bool { return v == nil }); i >= 0 {
		return nil, fmt.Errorf("%w: openai returned no embedding for input %d", domain.ErrProviderUnavailable, i)
	}
	return vectors, nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string { return s.model }

// Provider identifies the backend.
func (s *EmbeddingService) Provider() domain.AIProvider { return domain.AIProviderOpenAI }

// Ping lists models, which checks the key without spending tokens.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models")
}

// Close is a no-op.
func (s *EmbeddingService) Close() error { return nil }
