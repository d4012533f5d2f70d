// Package openai generates study answers with the OpenAI chat completions
// API or any server that speaks it.
package openai

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-study/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Defaults applied by NewLLMService.
const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultLLMModel          = "gpt-4o-mini"
	DefaultLLMTimeout        = 120 * time.Second
	DefaultRequestsPerSecond = 2
)

// LLMConfig configures the service. APIKey is required; other zero fields
// take the defaults above. BaseURL may point at Azure OpenAI or any
// compatible server.
type LLMConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// LLMService generates text with /chat/completions.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	Stop           []string            `json:"stop,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type choice struct {
	Message      chatCompletionMsg `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrInvalidInput)
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &LLMService{
		api: httpapi.New(httpapi.Options{
			Provider:          "openai",
			BaseURL:           cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Timeout:           cmp.Or(cfg.Timeout, DefaultLLMTimeout),
			RequestsPerSecond: rps,
			Header:            http.Header{"Authorization": {"Bearer " + cfg.APIKey}},
		}),
		model: cmp.Or(cfg.Model, DefaultLLMModel),
	}, nil
}

// Generate answers a single prompt. opts.JSON requests a JSON object reply.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := chatCompletionRequest{
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
	}
	if opts.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return s.complete(ctx, req)
}

// Chat continues a conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	msgs := make([]chatCompletionMsg, len(messages))
	for i, m := range messages {
		msgs[i] = chatCompletionMsg(m)
	}
	return s.complete(ctx, chatCompletionRequest{
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}

// complete sends one request and returns the first choice. A reply cut off
// by the token limit before any content is an error.
func (s *LLMService) complete(ctx context.Context, req chatCompletionRequest) (string, error) {
	req.Model = s.model

	var resp chatCompletionResponse
	if err := s.api.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	switch {
	case resp.Error != nil:
		return "", fmt.Errorf("%w: openai error: %s", domain.ErrProviderUnavailable, resp.Error.Message)
	case len(resp.Choices) == 0:
		return "", fmt.Errorf("%w: openai: no response choices returned", domain.ErrProviderUnavailable)
	}
	first := resp.Choices[0]
	if first.FinishReason == "length" && first.Message.Content == "" {
		return "", fmt.Errorf("%w: openai: output truncated before any content", domain.ErrProviderUnavailable)
	}
	return first.Message.Content, nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string { return s.model }

// Ping lists models, which checks the key without spending tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models")
}

// Close is a no-op.
func (s *LLMService) Close() error { return nil }
