package services

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

// defaultOllamaURL is used when no Ollama base URL is configured.
const defaultOllamaURL = "http://localhost:11434"

// providerKeys are the config keys for one provider role.
type providerKeys struct {
	provider, model, baseURL, apiKey string
}

//nolint:gosec // G101: key names, not credentials.
var (
	embedKeys = providerKeys{"embedding.provider", "embedding.model", "embedding.base_url", "embedding.api_key"}
	llmKeys   = providerKeys{"llm.provider", "llm.model", "llm.base_url", "llm.api_key"}
)

// Pipeline keys.
const (
	keyLLMTemperature = "llm.temperature"
	keyChunkSize      = "rag.chunk_size"
	keyChunkOverlap   = "rag.chunk_overlap"
	keyTopK           = "rag.top_k"
	keyStorageRoot    = "storage.root"
	keyVectorBackend  = "storage.vector_backend"
	keyMaxCached      = "storage.max_cached_indices"
	keyMaxUpload      = "upload.max_bytes"
	keyMaxSessions    = "sessions.max"
	keyMaxMessages    = "sessions.max_messages"
)

// Provider-wide fallbacks shared by the embedding and LLM roles.
const keyOllamaBaseURL = "ollama.base_url"

//nolint:gosec // G101: key names, not credentials.
var sharedAPIKeys = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "openai.api_key",
	domain.AIProviderAnthropic: "anthropic.api_key",
}

// parser converts a raw `settings set` value into what the store holds.
type parser func(key, raw string) (any, error)

func parseString(_, raw string) (any, error) { return raw, nil }

func parseInt(key, raw string) (any, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
	}
	return n, nil
}

func parseFloat(key, raw string) (any, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
	}
	return f, nil
}

func parseProvider(_, raw string) (any, error) {
	if !domain.AIProvider(raw).IsValid() {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, raw)
	}
	return raw, nil
}

// settable lists the keys accepted by Set.
var settable = map[string]parser{
	embedKeys.provider: parseProvider,
	embedKeys.model:    parseString,
	embedKeys.baseURL:  parseString,
	embedKeys.apiKey:   parseString,
	llmKeys.provider:   parseProvider,
	llmKeys.model:      parseString,
	llmKeys.baseURL:    parseString,
	llmKeys.apiKey:     parseString,
	keyLLMTemperature:  parseFloat,
	keyChunkSize:       parseInt,
	keyChunkOverlap:    parseInt,
	keyTopK:            parseInt,
	keyStorageRoot:     parseString,
	keyVectorBackend:   parseString,
	keyMaxCached:       parseInt,
	keyMaxUpload:       parseInt,
	keyMaxSessions:     parseInt,
	keyMaxMessages:     parseInt,
}

// SettableKeys returns the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settable))
	for k := range settable {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SettingsService reads and writes settings through a config store. Reads
// always resolve to a complete AppSettings: unset or invalid values take
// their defaults.
type SettingsService struct {
	store       driven.ConfigStore
	validator   driven.AIConfigValidator
	storageRoot string
}

// NewSettingsService creates a settings service. storageRoot is where
// document artifacts live when storage.root is unset. validator may be nil,
// in which case provider checks always pass.
func NewSettingsService(store driven.ConfigStore, validator driven.AIConfigValidator, storageRoot string) *SettingsService {
	return &SettingsService{store: store, validator: validator, storageRoot: storageRoot}
}

// Get resolves the current settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	def := s.GetDefaults()
	r := reader{s.store}

	embed := r.provider(embedKeys, def.Embedding.Provider, domain.DefaultEmbeddingModels())
	llm := r.provider(llmKeys, def.LLM.Provider, domain.DefaultLLMModels())

	rt := def.Runtime
	rt.EmbeddingProvider = embed.Provider
	rt.LLMProvider = llm.Provider
	rt.ChunkSize = r.nonZero(keyChunkSize, rt.ChunkSize)
	rt.ChunkOverlap = r.int(keyChunkOverlap, rt.ChunkOverlap)
	rt.TopK = r.nonZero(keyTopK, rt.TopK)
	rt.StorageRoot = r.str(keyStorageRoot, rt.StorageRoot)
	rt.LLMTemperature = r.float(keyLLMTemperature, rt.LLMTemperature)
	rt.MaxUploadBytes = int64(r.nonZero(keyMaxUpload, int(rt.MaxUploadBytes)))
	rt.MaxSessions = r.nonZero(keyMaxSessions, rt.MaxSessions)
	rt.MaxMessagesPerSession = r.nonZero(keyMaxMessages, rt.MaxMessagesPerSession)
	rt.MaxCachedIndices = r.nonZero(keyMaxCached, rt.MaxCachedIndices)
	rt.VectorBackend = domain.VectorBackend(r.str(keyVectorBackend, rt.VectorBackend.String()))

	return &domain.AppSettings{Embedding: embed, LLM: llm, Runtime: rt}, nil
}

// Save writes every setting. API keys are written only when set, so keys
// supplied by the environment never end up in the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	rt := settings.Runtime
	values := map[string]any{
		keyLLMTemperature: rt.LLMTemperature,
		keyChunkSize:      rt.ChunkSize,
		keyChunkOverlap:   rt.ChunkOverlap,
		keyTopK:           rt.TopK,
		keyStorageRoot:    rt.StorageRoot,
		keyVectorBackend:  rt.VectorBackend.String(),
		keyMaxCached:      rt.MaxCachedIndices,
		keyMaxUpload:      rt.MaxUploadBytes,
		keyMaxSessions:    rt.MaxSessions,
		keyMaxMessages:    rt.MaxMessagesPerSession,
	}
	for keys, p := range map[providerKeys]domain.ProviderSettings{embedKeys: settings.Embedding, llmKeys: settings.LLM} {
		values[keys.provider] = p.Provider.String()
		values[keys.model] = p.Model
		values[keys.baseURL] = p.BaseURL
		if p.APIKey != "" {
			values[keys.apiKey] = p.APIKey
		}
	}

	for _, k := range slices.Sorted(maps.Keys(values)) {
		if err := s.store.Set(k, values[k]); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return s.store.Save()
}

// Set parses and stores one key, refusing values that would leave the
// runtime configuration invalid.
func (s *SettingsService) Set(key, value string) error {
	parse, ok := settable[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q (known: %s)",
			domain.ErrInvalidInput, key, strings.Join(SettableKeys(), ", "))
	}
	v, err := parse(key, value)
	if err != nil {
		return err
	}

	trial := &SettingsService{store: overlay{s.store, key, v}, storageRoot: s.storageRoot}
	if _, err := trial.Runtime(); err != nil {
		return err
	}

	if err := s.store.Set(key, v); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return s.store.Save()
}

// SetEmbeddingProvider switches the embedding provider. An empty model
// picks the provider's default; an empty apiKey keeps the stored one when
// the provider is unchanged.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if provider.IsValid() && !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	return s.setProvider(provider, model, apiKey, domain.DefaultEmbeddingModels(),
		func(a *domain.AppSettings) *domain.ProviderSettings { return &a.Embedding })
}

// SetLLMProvider switches the generation provider, with the same defaults
// as SetEmbeddingProvider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	return s.setProvider(provider, model, apiKey, domain.DefaultLLMModels(),
		func(a *domain.AppSettings) *domain.ProviderSettings { return &a.LLM })
}

func (s *SettingsService) setProvider(
	provider domain.AIProvider,
	model, apiKey string,
	models map[domain.AIProvider]string,
	role func(*domain.AppSettings) *domain.ProviderSettings,
) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	p := role(settings)

	if apiKey == "" && provider == p.Provider {
		apiKey = p.APIKey
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = models[provider]
	}

	baseURL := ""
	if provider.IsLocal() {
		baseURL = cmp.Or(p.BaseURL, defaultOllamaURL)
	}
	*p = domain.ProviderSettings{Provider: provider, Model: model, BaseURL: baseURL, APIKey: apiKey}
	return s.Save(settings)
}

// Runtime returns the pipeline configuration, or why it is invalid.
func (s *SettingsService) Runtime() (domain.RuntimeConfig, error) {
	settings, err := s.Get()
	if err != nil {
		return domain.RuntimeConfig{}, err
	}
	if err := settings.Runtime.Validate(); err != nil {
		return domain.RuntimeConfig{}, err
	}
	return settings.Runtime, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings(s.storageRoot)
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	return s.validate(func(a *domain.AppSettings) error { return s.validator.ValidateEmbedding(&a.Embedding) })
}

// ValidateLLMConfig pings the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig() error {
	return s.validate(func(a *domain.AppSettings) error { return s.validator.ValidateLLM(&a.LLM) })
}

func (s *SettingsService) validate(check func(*domain.AppSettings) error) error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return check(settings)
}

// reader resolves config values against defaults.
type reader struct {
	store driven.ConfigStore
}

func (r reader) str(key, def string) string {
	return cmp.Or(r.store.GetString(key), def)
}

// nonZero treats 0 as unset.
func (r reader) nonZero(key string, def int) int {
	if v := r.store.GetInt(key); v != 0 {
		return v
	}
	return def
}

// int keeps an explicit 0.
func (r reader) int(key string, def int) int {
	if _, ok := r.store.Get(key); !ok {
		return def
	}
	return r.store.GetInt(key)
}

func (r reader) float(key string, def float64) float64 {
	if _, ok := r.store.Get(key); !ok {
		return def
	}
	return r.store.GetFloat(key)
}

// provider resolves one role. Role-specific keys win over the
// provider-wide ollama.base_url and <provider>.api_key.
func (r reader) provider(keys providerKeys, def domain.AIProvider, models map[domain.AIProvider]string) domain.ProviderSettings {
	p := domain.AIProvider(r.store.GetString(keys.provider))
	if !p.IsValid() {
		p = def
	}

	out := domain.ProviderSettings{
		Provider: p,
		Model:    r.str(keys.model, models[p]),
		BaseURL:  r.store.GetString(keys.baseURL),
		APIKey:   r.store.GetString(keys.apiKey),
	}
	if out.BaseURL == "" && p.IsLocal() {
		out.BaseURL = r.str(keyOllamaBaseURL, defaultOllamaURL)
	}
	if out.APIKey == "" {
		if shared, ok := sharedAPIKeys[p]; ok {
			out.APIKey = r.store.GetString(shared)
		}
	}
	return out
}

// overlay shows one pending change on top of a store so the result can be
// validated before it is written.
type overlay struct {
	driven.ConfigStore
	key string
	val any
}

func (o overlay) Get(key string) (any, bool) {
	if key == o.key {
		return o.val, true
	}
	return o.ConfigStore.Get(key)
}

func (o overlay) GetString(key string) string {
	if key == o.key {
		v, _ := o.val.(string)
		return v
	}
	return o.ConfigStore.GetString(key)
}

func (o overlay) GetInt(key string) int {
	if key == o.key {
		v, _ := o.val.(int)
		return v
	}
	return o.ConfigStore.GetInt(key)
}

func (o overlay) GetFloat(key string) float64 {
	if key != o.key {
		return o.ConfigStore.GetFloat(key)
	}
	switch v := o.val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
