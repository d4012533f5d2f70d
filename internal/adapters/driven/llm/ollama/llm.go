// Package ollama generates study answers with a local Ollama model.
package ollama

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-study/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults applied by NewLLMService.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 180 * time.Second
)

// LLMConfig configures the service. Zero fields take the defaults above.
type LLMConfig struct {
	BaseURL string
	Model   string

	// Timeout is generous because a cold model is loaded on first use.
	Timeout time.Duration
}

// LLMService sends every request, single prompts included, to /api/chat.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sampling struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
	Options  *sampling `json:"options,omitempty"`
}

type chatResponse struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	return &LLMService{
		api: httpapi.New(httpapi.Options{
			Provider: "ollama",
			BaseURL:  cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Timeout:  cmp.Or(cfg.Timeout, DefaultLLMTimeout),
		}),
		model: cmp.Or(cfg.Model, DefaultLLMModel),
	}
}

// Generate answers a single prompt. opts.JSON constrains the reply to JSON.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.request([]message{{Role: "user", Content: prompt}},
		sampling{NumPredict: opts.MaxTokens, Temperature: opts.Temperature, Stop: opts.StopWords})
	if opts.JSON {
		req.Format = "json"
	}
	return s.chat(ctx, req)
}

// Chat continues a conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	msgs := make([]message, len(messages))
	for i, m := range messages {
		msgs[i] = message(m)
	}
	return s.chat(ctx, s.request(msgs, sampling{NumPredict: opts.MaxTokens, Temperature: opts.Temperature}))
}

func (s *LLMService) request(msgs []message, opts sampling) chatRequest {
	req := chatRequest{Model: s.model, Messages: msgs}
	if opts.NumPredict > 0 || opts.Temperature > 0 || len(opts.Stop) > 0 {
		req.Options = &opts
	}
	return req
}

func (s *LLMService) chat(ctx context.Context, req chatRequest) (string, error) {
	var resp chatResponse
	if err := s.api.PostJSON(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: ollama: %s", domain.ErrProviderUnavailable, resp.Error)
	}
	return resp.Message.Content, nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string { return s.model }

// Ping lists local models, which needs no inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags")
}

// Close is a no-op.
func (s *LLMService) Close() error { return nil }
