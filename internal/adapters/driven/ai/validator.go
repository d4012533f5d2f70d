package ai

import (
	"fmt"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by connecting to the provider.
// Failures wrap domain.ErrEmbeddingUnavailable or domain.ErrLLMUnavailable
// so /ready and the settings wizard report them the same way.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the embedding provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config != nil && config.Provider == domain.AIProviderAnthropic {
		return fmt.Errorf("%w: %s has no embeddings API", domain.ErrInvalidInput, config.Provider)
	}
	if err := ValidateEmbeddingConfig(config); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// ValidateLLM pings the LLM provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if err := ValidateLLMConfig(config); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}
