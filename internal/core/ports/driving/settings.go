package driving

import "github.com/custodia-labs/sercha-study/internal/core/domain"

// SettingsService reads and changes the persisted settings that shape the
// pipeline and pick the AI providers.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	// Set parses value for a dotted key (e.g. "rag.chunk_size") and stores
	// it only if the resulting runtime configuration is valid.
	Set(key, value string) error

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Runtime returns the validated pipeline configuration.
	Runtime() (domain.RuntimeConfig, error)

	// ValidateEmbeddingConfig and ValidateLLMConfig ping the configured
	// providers.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
