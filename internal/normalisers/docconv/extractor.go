// Package docconv extracts text from office and PDF documents using
// code.sajari.com/docconv. PDF conversion shells out to poppler's pdftotext,
// which must be installed on the host.
package docconv

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv/v2"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// MIME types handled by docconv.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEODT  = "application/vnd.oasis.opendocument.text"
	MIMERTF  = "application/rtf"
	MIMEDOC  = "application/msword"
)

// ConvertFunc converts a document body of the given MIME type to text.
type ConvertFunc func(content []byte, mimeType string) (string, error)

// Extractor converts binary document formats to text.
type Extractor struct {
	convert ConvertFunc
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConverter replaces the docconv call. Used by tests on hosts without
// the external converters.
func WithConverter(fn ConvertFunc) Option {
	return func(e *Extractor) {
		e.convert = fn
	}
}

// New creates a docconv-backed extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{convert: convert}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEPDF, MIMEDOCX, MIMEODT, MIMERTF, "text/rtf", MIMEDOC}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 60
}

// Extract returns the text body of the document.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mimeType := raw.MIMEType
	if mimeType == "text/rtf" {
		mimeType = MIMERTF
	}

	text, err := e.convert(raw.Content, mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtraction, raw.Filename, err)
	}
	return text, nil
}

func convert(content []byte, mimeType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(content), mimeType, false)
	if err != nil {
		return "", err
	}
	if res.Meta != nil {
		if msg := strings.TrimSpace(res.Meta["error"]); msg != "" {
			return "", fmt.Errorf("docconv: %s", msg)
		}
	}
	return res.Body, nil
}
