// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Generates vector embeddings (Ollama, OpenAI)
//   - LLMService: Generates answers (Ollama, OpenAI, Anthropic)
//   - VectorIndex: Per-document vector storage and search
//   - MetadataStore: Per-document chunk and document persistence
//   - Extractor / ExtractorRegistry: Turns uploaded bytes into text
//   - SessionStore: Conversation history for follow-up questions
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - PromptStore: Customisable prompt templates. Defaults are embedded.
//   - AIConfigValidator: Provider connectivity checks for readiness.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
