package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider names a service that embeds text, generates text, or both.
type AIProvider string

// Available AI providers.
const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

type providerInfo struct {
	description string
	local       bool
	embeds      bool
}

// providers is ordered: the first entry is the default choice in menus.
var providers = []struct {
	id AIProvider
	providerInfo
}{
	{AIProviderOllama, providerInfo{"Ollama (local)", true, true}},
	{AIProviderOpenAI, providerInfo{"OpenAI (cloud)", false, true}},
	{AIProviderAnthropic, providerInfo{"Anthropic (cloud)", false, false}},
}

func (p AIProvider) info() (providerInfo, bool) {
	for _, e := range providers {
		if e.id == p {
			return e.providerInfo, true
		}
	}
	return providerInfo{}, false
}

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := p.info()
	return ok
}

// RequiresAPIKey reports whether p is a cloud API that needs a key.
func (p AIProvider) RequiresAPIKey() bool {
	i, ok := p.info()
	return ok && !i.local
}

// IsLocal reports whether p runs on this machine and is reached by BaseURL.
func (p AIProvider) IsLocal() bool {
	i, _ := p.info()
	return i.local
}

// SupportsEmbeddings reports whether p can serve as the embedding provider.
func (p AIProvider) SupportsEmbeddings() bool {
	i, _ := p.info()
	return i.embeds
}

func (p AIProvider) String() string {
	return string(p)
}

// Description returns a label for menus and settings output.
func (p AIProvider) Description() string {
	if i, ok := p.info(); ok {
		return i.description
	}
	return unknownDescription
}

// ProviderSettings is one configured provider: which service, which model,
// and how to reach it. BaseURL applies to local providers, APIKey to cloud.
type ProviderSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings = ProviderSettings

// LLMSettings configures the generation provider.
type LLMSettings = ProviderSettings

// IsConfigured reports whether the provider is known and has a key when
// it needs one.
func (s ProviderSettings) IsConfigured() bool {
	return s.Provider.IsValid() && (!s.Provider.RequiresAPIKey() || s.APIKey != "")
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendFlat is the pure-Go exact scan index.
	VectorBackendFlat VectorBackend = "flat"

	// VectorBackendSQLiteVec is the sqlite-vec index (requires cgo).
	VectorBackendSQLiteVec VectorBackend = "sqlite-vec"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendFlat || b == VectorBackendSQLiteVec
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Runtime defaults.
const (
	DefaultChunkSize             = 512
	DefaultChunkOverlap          = 50
	DefaultTopK                  = 3
	DefaultLLMTemperature        = 0.7
	DefaultMaxUploadBytes        = 50 * 1024 * 1024
	DefaultMaxSessions           = 100
	DefaultMaxMessagesPerSession = 10
	DefaultMaxCachedIndices      = 20
)

// RuntimeConfig is the resolved pipeline configuration passed to services
// at construction time.
type RuntimeConfig struct {
	// ChunkSize is the chunk window in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by adjacent chunks.
	ChunkOverlap int

	// TopK is the default number of chunks retrieved per question.
	TopK int

	// EmbeddingProvider is the active embedding backend.
	EmbeddingProvider AIProvider

	// LLMProvider is the active generation backend.
	LLMProvider AIProvider

	// StorageRoot holds the per-document index and metadata artifacts.
	StorageRoot string

	// LLMTemperature is passed to every generation call.
	LLMTemperature float64

	// MaxUploadBytes caps ingested file size.
	MaxUploadBytes int64

	// MaxSessions caps the number of live study sessions.
	MaxSessions int

	// MaxMessagesPerSession caps question/answer exchanges kept per session.
	MaxMessagesPerSession int

	// MaxCachedIndices caps the number of loaded indices kept in memory.
	MaxCachedIndices int

	// VectorBackend selects the index implementation.
	VectorBackend VectorBackend
}

// DefaultRuntimeConfig returns the defaults rooted at storageRoot.
func DefaultRuntimeConfig(storageRoot string) RuntimeConfig {
	return RuntimeConfig{
		ChunkSize:             DefaultChunkSize,
		ChunkOverlap:          DefaultChunkOverlap,
		TopK:                  DefaultTopK,
		EmbeddingProvider:     AIProviderOllama,
		LLMProvider:           AIProviderOllama,
		StorageRoot:           storageRoot,
		LLMTemperature:        DefaultLLMTemperature,
		MaxUploadBytes:        DefaultMaxUploadBytes,
		MaxSessions:           DefaultMaxSessions,
		MaxMessagesPerSession: DefaultMaxMessagesPerSession,
		MaxCachedIndices:      DefaultMaxCachedIndices,
		VectorBackend:         VectorBackendFlat,
	}
}

// Validate checks the invariants every service relies on.
func (c RuntimeConfig) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidInput, c.ChunkSize)
	case c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: chunk_overlap must be in [0, %d), got %d",
			ErrInvalidInput, c.ChunkSize, c.ChunkOverlap)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, c.TopK)
	case !c.EmbeddingProvider.SupportsEmbeddings():
		return fmt.Errorf("%w: unsupported embedding provider %q", ErrInvalidInput, c.EmbeddingProvider)
	case !c.LLMProvider.IsValid():
		return fmt.Errorf("%w: unsupported llm provider %q", ErrInvalidInput, c.LLMProvider)
	case c.StorageRoot == "":
		return fmt.Errorf("%w: storage_root is required", ErrInvalidInput)
	case c.LLMTemperature < 0 || c.LLMTemperature > 2:
		return fmt.Errorf("%w: llm temperature must be in [0, 2], got %g", ErrInvalidInput, c.LLMTemperature)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidInput)
	case c.MaxSessions <= 0 || c.MaxMessagesPerSession <= 0:
		return fmt.Errorf("%w: session limits must be positive", ErrInvalidInput)
	case c.MaxCachedIndices <= 0:
		return fmt.Errorf("%w: max_cached_indices must be positive", ErrInvalidInput)
	case !c.VectorBackend.IsValid():
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidInput, c.VectorBackend)
	}
	return nil
}

// AppSettings is everything persisted in config.toml.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Runtime   RuntimeConfig
}

// DefaultAppSettings returns settings with sensible defaults.
// Both providers default to a local Ollama instance.
func DefaultAppSettings(storageRoot string) AppSettings {
	return AppSettings{
		Embedding: ProviderSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: ProviderSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
		},
		Runtime: DefaultRuntimeConfig(storageRoot),
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, e := range providers {
		if e.embeds {
			out = append(out, e.id)
		}
	}
	return out
}

// AllLLMProviders returns providers that support generation. Every known
// provider does.
func AllLLMProviders() []AIProvider {
	out := make([]AIProvider, len(providers))
	for i, e := range providers {
		out[i] = e.id
	}
	return out
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

