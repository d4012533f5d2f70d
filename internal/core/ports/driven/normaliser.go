package driven

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// Extractor turns an uploaded file into plain text.
// Each extractor handles specific MIME types (e.g., PDF, Markdown).
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns the document text.
	// Failures wrap domain.ErrExtraction.
	Extract(ctx context.Context, raw *domain.RawDocument) (string, error)
}

// ExtractorRegistry selects the extractor for a document.
type ExtractorRegistry interface {
	// Register adds an extractor.
	Register(e Extractor)

	// Get returns the highest-priority extractor for a MIME type.
	// Returns domain.ErrUnsupportedType if none matches.
	Get(mimeType string) (Extractor, error)

	// SupportedTypes returns every registered MIME type.
	SupportedTypes() []string

	// Extract detects the MIME type if missing, selects an extractor and
	// returns cleaned text.
	Extract(ctx context.Context, raw *domain.RawDocument) (string, error)
}
