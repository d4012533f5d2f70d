package api

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

type fakeDocuments struct {
	docs      map[string]domain.Document
	ingestErr error
	ingested  []string
	content   []byte
}

func newFakeDocuments(docs ...domain.Document) *fakeDocuments {
	f := &fakeDocuments{docs: make(map[string]domain.Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocuments) Ingest(_ context.Context, content []byte, filename string) (*domain.Document, error) {
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	f.ingested = append(f.ingested, filename)
	f.content = content
	doc := domain.Document{ID: "doc-new", Title: filename, Status: domain.DocumentReady, ChunkCount: 3}
	f.docs[doc.ID] = doc
	return &doc, nil
}

func (f *fakeDocuments) List(_ context.Context) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDocuments) Get(_ context.Context, docID string) (*driving.DocumentDetails, error) {
	d, ok := f.docs[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &driving.DocumentDetails{
		Document:   d,
		Manifest:   &domain.IndexManifest{DocID: d.ID, Provider: domain.AIProviderOllama, Model: "nomic-embed-text", Dimensions: 768, Metric: domain.MetricCosine, ChunkCount: d.ChunkCount},
		Compatible: true,
	}, nil
}

func (f *fakeDocuments) Delete(_ context.Context, docID string) error {
	delete(f.docs, docID)
	return nil
}

func (f *fakeDocuments) Prune(_ context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeDocuments) Reindex(ctx context.Context, docID string) (*driving.DocumentDetails, error) {
	return f.Get(ctx, docID)
}

type fakeStudy struct {
	answer *domain.Answer
	err    error
	last   domain.AskRequest
}

func (f *fakeStudy) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func (f *fakeStudy) Modes() []domain.Mode {
	return domain.AllModes()
}

type fakeSessions struct {
	sessions map[string]*domain.Session
}

func (f *fakeSessions) Create() *domain.Session {
	s := &domain.Session{ID: "s-new"}
	f.sessions[s.ID] = s
	return s
}

func (f *fakeSessions) Get(id string) (*domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) List() []domain.Session {
	out := make([]domain.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out
}

func (f *fakeSessions) Clear(id string) error {
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Messages = nil
	return nil
}

func (f *fakeSessions) Delete(id string) error {
	if _, ok := f.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

type fakeReadiness struct {
	embedErr error
	llmErr   error
}

func (f fakeReadiness) ValidateEmbeddingConfig() error { return f.embedErr }
func (f fakeReadiness) ValidateLLMConfig() error       { return f.llmErr }

var errOllamaDown = errors.New("ollama: connection refused")
