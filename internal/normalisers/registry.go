package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/normalisers/docconv"
	"github.com/custodia-labs/sercha-study/internal/normalisers/html"
	"github.com/custodia-labs/sercha-study/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-study/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches documents to extractors by MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default returns a registry with every built-in extractor registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docconv.New())
	return r
}

// Register adds an extractor.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, e)
}

// Get returns the highest-priority extractor for mimeType. Earlier
// registrations win ties.
func (r *Registry) Get(mimeType string) (driven.Extractor, error) {
	mimeType = baseType(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.Extractor
	for _, e := range r.extractors {
		if !supports(e, mimeType) {
			continue
		}
		if best == nil || e.Priority() > best.Priority() {
			best = e
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, mimeType)
	}
	return best, nil
}

// SupportedTypes returns every registered MIME type, sorted.
func (r *Registry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range r.extractors {
		for _, t := range e.SupportedMIMETypes() {
			seen[t] = struct{}{}
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Extract detects the MIME type when raw.MIMEType is empty, runs the
// selected extractor and cleans the result. Empty output is an extraction
// error.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}
	if raw.MIMEType == "" {
		raw.MIMEType = DetectMIME(raw.Filename, raw.Content)
	}

	e, err := r.Get(raw.MIMEType)
	if err != nil {
		return "", err
	}

	text, err := e.Extract(ctx, raw)
	if err != nil {
		return "", err
	}

	text = Clean(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text found in %s", domain.ErrExtraction, raw.Filename)
	}
	return text, nil
}

// Extensions the mime package does not reliably know on every platform.
var knownExtensions = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".pdf":      docconv.MIMEPDF,
	".docx":     docconv.MIMEDOCX,
	".odt":      docconv.MIMEODT,
	".rtf":      docconv.MIMERTF,
	".doc":      docconv.MIMEDOC,
	".csv":      "text/csv",
	".json":     "application/json",
}

// DetectMIME guesses a MIME type from the file extension, falling back to
// content sniffing.
func DetectMIME(filename string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := knownExtensions[ext]; ok {
		return t
	}
	if ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return baseType(t)
		}
	}
	return baseType(http.DetectContentType(content))
}

// baseType strips parameters such as charset from a MIME type.
func baseType(mimeType string) string {
	if t, _, err := mime.ParseMediaType(mimeType); err == nil {
		return t
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func supports(e driven.Extractor, mimeType string) bool {
	for _, t := range e.SupportedMIMETypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}
