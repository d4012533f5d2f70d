package ai

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// fakeOllama answers the tags endpoint used by Ping.
func fakeOllama(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// deadURL returns the address of a server that has already been shut down.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestInitResult_Close_NilServices(t *testing.T) {
	result := &InitResult{}
	result.Close()
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantErr  error
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{
			name:     "ollama",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		},
		{
			name: "openai",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-small",
			},
		},
		{
			name:     "openai without key is unconfigured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantNil:  true,
		},
		{
			name:     "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantNil:  true,
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "unknown", APIKey: "k"},
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Provider, svc.Provider())
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			svc.Close()
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantNil  bool
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.LLMSettings{}, wantNil: true},
		{name: "ollama", settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}},
		{name: "openai", settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"}},
		{
			name:     "anthropic",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-3-5-haiku-latest"},
		},
		{name: "anthropic without key", settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic}, wantNil: true},
		{name: "unknown provider", settings: &domain.LLMSettings{Provider: "unknown", APIKey: "k"}, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			svc.Close()
		})
	}
}

func TestCreateOllamaEmbedding_UnknownModelLearnsDimensions(t *testing.T) {
	svc := createOllamaEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "custom-model-unknown",
	})
	defer svc.Close()

	assert.Equal(t, 0, svc.Dimensions())
}

func TestCreateOllamaEmbedding_KnownModel(t *testing.T) {
	svc := createOllamaEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
	})
	defer svc.Close()

	assert.Equal(t, domain.EmbeddingDimensions()["nomic-embed-text"], svc.Dimensions())
}

func TestValidateEmbeddingConfig(t *testing.T) {
	assert.NoError(t, ValidateEmbeddingConfig(nil))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{}))

	err := ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ok := &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: fakeOllama(t)}
	assert.NoError(t, ValidateEmbeddingConfig(ok))

	down := &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: deadURL(t)}
	assert.ErrorIs(t, ValidateEmbeddingConfig(down), domain.ErrProviderUnavailable)
}

func TestValidateLLMConfig(t *testing.T) {
	assert.NoError(t, ValidateLLMConfig(nil))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{}))

	ok := &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: fakeOllama(t)}
	assert.NoError(t, ValidateLLMConfig(ok))

	down := &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: deadURL(t)}
	assert.ErrorIs(t, ValidateLLMConfig(down), domain.ErrProviderUnavailable)
}

func TestInit_PingBothUnreachable(t *testing.T) {
	settings := domain.DefaultAppSettings(t.TempDir())
	settings.Embedding.BaseURL = deadURL(t)
	settings.LLM.BaseURL = deadURL(t)

	result, err := Init(context.Background(), settings, true)
	require.NoError(t, err)
	defer result.Close()

	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "embedding provider ollama unreachable")
	assert.Contains(t, result.Warnings[1], "llm provider ollama unreachable")
}

func TestInit_NoPing(t *testing.T) {
	settings := domain.DefaultAppSettings(t.TempDir())
	settings.Embedding.BaseURL = deadURL(t)
	settings.LLM.BaseURL = deadURL(t)

	result, err := Init(context.Background(), settings, false)
	require.NoError(t, err)
	defer result.Close()

	assert.NotNil(t, result.EmbeddingService)
	assert.NotNil(t, result.LLMService)
	assert.Empty(t, result.Warnings)
}

func TestInit_PingWarnsWhenUnreachable(t *testing.T) {
	settings := domain.DefaultAppSettings(t.TempDir())
	settings.Embedding.BaseURL = fakeOllama(t)
	settings.LLM.BaseURL = deadURL(t)

	result, err := Init(context.Background(), settings, true)
	require.NoError(t, err)
	defer result.Close()

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "llm provider ollama unreachable")
}

func TestConnect_LogsUnreachableProviders(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetVerbose(true)
	t.Cleanup(func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	})

	settings := domain.DefaultAppSettings(t.TempDir())
	settings.Embedding.BaseURL = fakeOllama(t)
	settings.LLM.BaseURL = deadURL(t)

	result := Connect(context.Background(), settings)
	defer result.Close()

	assert.NotNil(t, result.EmbeddingService)
	assert.NotNil(t, result.LLMService)
	assert.Contains(t, buf.String(), "llm provider ollama unreachable")
	assert.NotContains(t, buf.String(), "embedding provider")
}

func TestConnect_ConfigErrorLeavesServicesNil(t *testing.T) {
	settings := domain.DefaultAppSettings(t.TempDir())
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}

	result := Connect(context.Background(), settings)
	defer result.Close()

	assert.Nil(t, result.EmbeddingService)
	assert.Nil(t, result.LLMService)
}

func TestInit_AnthropicEmbeddingIsError(t *testing.T) {
	settings := domain.DefaultAppSettings(t.TempDir())
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}

	_, err := Init(context.Background(), settings, false)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
