package driven

import "context"

// LLMService produces answers from prompts. Adapters exist for OpenAI,
// Anthropic and Ollama. Failures wrap domain.ErrProviderUnavailable.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat continues a conversation; messages run oldest first.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions tunes a single completion. Zero values leave the
// provider defaults in place.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string

	// JSON asks for a single JSON object reply, natively where the provider
	// supports it and by instruction otherwise.
	JSON bool
}

// ChatMessage is one conversation turn. Role is "system", "user" or
// "assistant".
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tunes a chat completion.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
