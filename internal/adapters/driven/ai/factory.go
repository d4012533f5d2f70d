// Package ai builds the embedding and LLM adapters named in settings and
// checks that they answer.
package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	ollamaembed "github.com/custodia-labs/sercha-study/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-study/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-study/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-study/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-study/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// pingTimeout bounds each provider reachability check.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues found while connecting.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates both AI services from settings without requiring them to be
// reachable. Unreachable providers become warnings so offline commands
// (list, delete, prune) keep working; operations that need a provider fail
// with ErrProviderUnavailable when they call it.
func Init(ctx context.Context, settings domain.AppSettings, ping bool) (*InitResult, error) {
	result := &InitResult{}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	result.EmbeddingService = embedder

	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		result.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	result.LLMService = llm

	if !ping {
		return result, nil
	}

	// Both pings share one timeout and run side by side.
	var embedErr, llmErr error
	g, gctx := errgroup.WithContext(ctx)
	if embedder != nil {
		g.Go(func() error { embedErr = pingWithTimeout(gctx, embedder); return nil })
	}
	if llm != nil {
		g.Go(func() error { llmErr = pingWithTimeout(gctx, llm); return nil })
	}
	_ = g.Wait()

	if embedErr != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedding provider %s unreachable: %v",
			settings.Embedding.Provider, embedErr))
	}
	if llmErr != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("llm provider %s unreachable: %v",
			settings.LLM.Provider, llmErr))
	}
	return result, nil
}

// Connect initialises both services, pinging them, and logs every warning.
// A configuration error leaves both services nil so commands that never
// call a provider still run.
func Connect(ctx context.Context, settings domain.AppSettings) *InitResult {
	result, err := Init(ctx, settings, true)
	if err != nil {
		logger.Warn("AI providers unavailable: %v", err)
		return &InitResult{}
	}
	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result
}

// pinger is the part of both AI service ports that validation needs.
type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

func pingWithTimeout(ctx context.Context, p pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// probe creates a throwaway service, pings it and closes it. An
// unconfigured provider passes.
func probe[S pinger](create func() (S, error), configured bool) error {
	if !configured {
		return nil
	}
	svc, err := create()
	if err != nil {
		return err
	}
	if any(svc) == nil {
		return nil
	}
	defer svc.Close()
	return pingWithTimeout(context.Background(), svc)
}

// ValidateEmbeddingConfig checks that settings name a reachable provider.
// The settings wizard calls it before saving.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	return probe(func() (driven.EmbeddingService, error) {
		return CreateEmbeddingService(settings)
	}, settings != nil && settings.IsConfigured())
}

// ValidateLLMConfig checks that settings name a reachable provider.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	return probe(func() (driven.LLMService, error) {
		return CreateLLMService(settings)
	}, settings != nil && settings.IsConfigured())
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrInvalidInput)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	// Unknown models leave dimensions at zero; the service learns them from
	// the first response.
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
