package driven

import "github.com/custodia-labs/sercha-study/internal/core/domain"

// AIConfigValidator checks provider settings by building the service and
// pinging it. Settings changes and the API readiness probe use it.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
