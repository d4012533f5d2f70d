package driven

// PromptStore provides access to LLM prompt templates.
// Templates use text/template syntax. Implementations may load prompts from
// files and fall back to embedded defaults.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names, one per study mode plus the correction prompt.
const (
	// PromptExplain answers a question from the context.
	PromptExplain = "explain"

	// PromptSummarize summarises the context.
	PromptSummarize = "summarize"

	// PromptFlashcards asks for {"flashcards": [...]} JSON.
	PromptFlashcards = "flashcards"

	// PromptMCQ asks for {"questions": [...]} JSON.
	PromptMCQ = "mcq"

	// PromptCorrection is appended when structured output failed to parse.
	PromptCorrection = "correction"

	// PromptChatSystem is the system prompt for session follow-ups.
	PromptChatSystem = "chat_system"
)

// AllPromptNames returns every prompt a store must be able to serve.
func AllPromptNames() []string {
	return []string{
		PromptExplain,
		PromptSummarize,
		PromptFlashcards,
		PromptMCQ,
		PromptCorrection,
		PromptChatSystem,
	}
}
