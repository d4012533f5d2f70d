package docconv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

func TestExtractor_SupportedTypes(t *testing.T) {
	e := New()

	assert.Contains(t, e.SupportedMIMETypes(), MIMEPDF)
	assert.Contains(t, e.SupportedMIMETypes(), MIMEDOCX)
	assert.Contains(t, e.SupportedMIMETypes(), MIMEODT)
	assert.Equal(t, 60, e.Priority())
}

func TestExtractor_UsesConverter(t *testing.T) {
	var gotMIME string
	e := New(WithConverter(func(content []byte, mimeType string) (string, error) {
		gotMIME = mimeType
		return "converted " + string(content), nil
	}))

	text, err := e.Extract(context.Background(), &domain.RawDocument{
		Filename: "notes.rtf",
		MIMEType: "text/rtf",
		Content:  []byte("body"),
	})
	require.NoError(t, err)

	assert.Equal(t, "converted body", text)
	assert.Equal(t, MIMERTF, gotMIME)
}

func TestExtractor_ConverterErrorIsExtractionError(t *testing.T) {
	e := New(WithConverter(func([]byte, string) (string, error) {
		return "", errors.New("pdftotext not found")
	}))

	_, err := e.Extract(context.Background(), &domain.RawDocument{Filename: "a.pdf", MIMEType: MIMEPDF})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "a.pdf")
}

func TestExtractor_NilDocument(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, &domain.RawDocument{MIMEType: MIMEPDF})
	assert.ErrorIs(t, err, context.Canceled)
}
