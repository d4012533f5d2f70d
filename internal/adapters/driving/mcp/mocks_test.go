package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	details   *driving.DocumentDetails
	err       error

	ingested map[string][]byte
	deleted  []string
}

func (m *mockDocumentService) Ingest(_ context.Context, content []byte, filename string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.ingested == nil {
		m.ingested = make(map[string][]byte)
	}
	m.ingested[filename] = content
	return &domain.Document{
		ID:         "doc-new",
		Title:      filename,
		Status:     domain.DocumentReady,
		ChunkCount: 2,
		MIMEType:   "text/plain",
	}, nil
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.details == nil {
		return nil, domain.ErrNotFound
	}
	return m.details, nil
}

func (m *mockDocumentService) Delete(_ context.Context, docID string) error {
	m.deleted = append(m.deleted, docID)
	return m.err
}

func (m *mockDocumentService) Prune(_ context.Context) ([]string, error) {
	return nil, m.err
}

func (m *mockDocumentService) Reindex(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

// mockStudyService is a mock implementation of driving.StudyService.
type mockStudyService struct {
	answer *domain.Answer
	err    error
	last   domain.AskRequest
}

func (m *mockStudyService) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	m.last = req
	return m.answer, m.err
}

func (m *mockStudyService) Modes() []domain.Mode {
	return domain.AllModes()
}

func newTestServer(docs *mockDocumentService, study *mockStudyService) (*Server, error) {
	return NewServer(&Ports{Documents: docs, Study: study, MaxUploadBytes: 1024})
}
