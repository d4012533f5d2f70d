package normalisers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

type stubExtractor struct {
	types    []string
	priority int
	text     string
	err      error
}

func (s *stubExtractor) SupportedMIMETypes() []string { return s.types }
func (s *stubExtractor) Priority() int                { return s.priority }
func (s *stubExtractor) Extract(context.Context, *domain.RawDocument) (string, error) {
	return s.text, s.err
}

func TestRegistry_GetPrefersHigherPriority(t *testing.T) {
	r := NewRegistry()
	low := &stubExtractor{types: []string{"text/plain"}, priority: 5}
	high := &stubExtractor{types: []string{"text/plain"}, priority: 50}
	r.Register(low)
	r.Register(high)

	got, err := r.Get("text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Same(t, high, got)
}

func TestRegistry_GetUnsupported(t *testing.T) {
	_, err := Default().Get("image/png")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_SupportedTypes(t *testing.T) {
	types := Default().SupportedTypes()

	assert.Contains(t, types, "text/plain")
	assert.Contains(t, types, "text/markdown")
	assert.Contains(t, types, "application/pdf")
	assert.IsIncreasing(t, types)
}

func TestRegistry_ExtractDetectsAndCleans(t *testing.T) {
	r := Default()
	raw := &domain.RawDocument{
		Filename: "notes.md",
		Content:  []byte("# Title\n\nThe ﬁrst “definition”  of\tthings."),
	}

	text, err := r.Extract(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "text/markdown", raw.MIMEType)
	assert.Equal(t, "Title\n\nThe first \"definition\" of things.", text)
}

func TestRegistry_ExtractEmptyText(t *testing.T) {
	r := Default()

	_, err := r.Extract(context.Background(), &domain.RawDocument{Filename: "blank.txt", Content: []byte(" \n\t ")})
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestRegistry_ExtractPropagatesExtractorError(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{types: []string{"application/pdf"}, priority: 60, err: errors.New("boom")})

	_, err := r.Extract(context.Background(), &domain.RawDocument{Filename: "a.pdf"})
	assert.EqualError(t, err, "boom")
}

func TestRegistry_ExtractUnsupported(t *testing.T) {
	_, err := Default().Extract(context.Background(), &domain.RawDocument{
		Filename: "photo.png",
		Content:  []byte("\x89PNG\r\n\x1a\n"),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_ExtractNil(t *testing.T) {
	_, err := Default().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		filename string
		content  []byte
		want     string
	}{
		{"a.txt", nil, "text/plain"},
		{"A.PDF", nil, "application/pdf"},
		{"notes.markdown", nil, "text/markdown"},
		{"report.docx", nil, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"page.htm", nil, "text/html"},
		{"noext", []byte("just some words"), "text/plain"},
		{"noext", []byte("%PDF-1.7 ..."), "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIME(tt.filename, tt.content))
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ligatures", "ﬂow ﬀect ﬃx ﬄe", "flow ffect ffix ffle"},
		{"dashes", "a–b—c", "a-b-c"},
		{"quotes", "‘it’s’ “q”", "'it's' \"q\""},
		{"spaces", "a   b\t\tc d", "a b c d"},
		{"paragraphs kept", "p1\n\n\n\n p2 \r\nline", "p1\n\np2\nline"},
		{"trim", "  \n text \n ", "text"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}
