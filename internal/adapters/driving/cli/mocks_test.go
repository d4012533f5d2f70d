package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

var errServiceFailed = errors.New("service failed")

var testCreated = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// MockDocumentService implements driving.DocumentService for CLI tests.
type MockDocumentService struct {
	docs     []domain.Document
	ingested []string
	deleted  []string
	pruned   []string
	err      error
}

func (m *MockDocumentService) Ingest(_ context.Context, content []byte, filename string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.ingested = append(m.ingested, filename)
	return &domain.Document{ID: "doc-new", Title: filename, Status: domain.DocumentReady, ChunkCount: len(content)/100 + 1}, nil
}

func (m *MockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *MockDocumentService) Get(_ context.Context, docID string) (*driving.DocumentDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, d := range m.docs {
		if d.ID != docID {
			continue
		}
		details := &driving.DocumentDetails{Document: d, Compatible: true}
		if d.IsReady() {
			details.Manifest = &domain.IndexManifest{
				DocID:      d.ID,
				Provider:   domain.AIProviderOllama,
				Model:      "nomic-embed-text",
				Dimensions: 768,
				Metric:     domain.MetricCosine,
				ChunkCount: d.ChunkCount,
			}
		}
		return details, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockDocumentService) Delete(_ context.Context, docID string) error {
	m.deleted = append(m.deleted, docID)
	return m.err
}

func (m *MockDocumentService) Prune(_ context.Context) ([]string, error) {
	return m.pruned, m.err
}

func (m *MockDocumentService) Reindex(ctx context.Context, docID string) (*driving.DocumentDetails, error) {
	return m.Get(ctx, docID)
}

// MockStudyService implements driving.StudyService for CLI tests.
type MockStudyService struct {
	last   domain.AskRequest
	answer *domain.Answer
	err    error
}

func (m *MockStudyService) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{
		Mode:      req.Mode,
		DocID:     req.DocID,
		Content:   "Photosynthesis turns light into chemical energy.",
		SessionID: "sess-1",
		Citations: []domain.Citation{
			{ChunkID: "doc-1_chunk_0", DocumentID: req.DocID, StartOffset: 0, EndOffset: 120, Snippet: "Light reactions", Score: 0.87},
		},
	}, nil
}

func (m *MockStudyService) Modes() []domain.Mode {
	return domain.AllModes()
}

// MockSessionService implements driving.SessionService for CLI tests.
type MockSessionService struct {
	sessions map[string]*domain.Session
}

func (m *MockSessionService) Create() *domain.Session {
	s := &domain.Session{ID: "sess-new", CreatedAt: testCreated, LastActivity: testCreated}
	m.sessions[s.ID] = s
	return s
}

func (m *MockSessionService) Get(id string) (*domain.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *MockSessionService) List() []domain.Session {
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out
}

func (m *MockSessionService) Clear(id string) error {
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Messages = nil
	return nil
}

func (m *MockSessionService) Delete(id string) error {
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// MockSettingsService implements driving.SettingsService for CLI tests.
type MockSettingsService struct {
	settings    domain.AppSettings
	set         map[string]string
	runtimeErr  error
	validateErr error
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *MockSettingsService) Set(key, value string) error {
	if key == "bogus" {
		return domain.ErrInvalidInput
	}
	m.set[key] = value
	return nil
}

func (m *MockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) Runtime() (domain.RuntimeConfig, error) {
	return m.settings.Runtime, m.runtimeErr
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings("/tmp/sercha-study")
}

func (m *MockSettingsService) ValidateEmbeddingConfig() error {
	return m.validateErr
}

func (m *MockSettingsService) ValidateLLMConfig() error {
	return m.validateErr
}

type testServices struct {
	documents *MockDocumentService
	study     *MockStudyService
	sessions  *MockSessionService
	settings  *MockSettingsService
}

// setupTestServices installs mocks and returns them with a cleanup func
// that restores the previous services and resets command flags.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		documents: &MockDocumentService{docs: []domain.Document{
			{ID: "doc-1", Title: "Photosynthesis", SourcePath: "bio.pdf", MIMEType: "application/pdf",
				Status: domain.DocumentReady, ChunkCount: 12, CreatedAt: testCreated},
			{ID: "doc-2", Title: "Draft", SourcePath: "draft.md", MIMEType: "text/markdown",
				Status: domain.DocumentPending, CreatedAt: testCreated},
		}},
		study: &MockStudyService{},
		sessions: &MockSessionService{sessions: map[string]*domain.Session{
			"sess-1": {
				ID: "sess-1", CreatedAt: testCreated, LastActivity: testCreated, DocIDs: []string{"doc-1"},
				Messages: []domain.Message{
					{Role: domain.RoleUser, Content: "What is chlorophyll?"},
					{Role: domain.RoleAssistant, Content: "A green pigment."},
				},
			},
		}},
		settings: &MockSettingsService{
			settings: domain.DefaultAppSettings("/tmp/sercha-study"),
			set:      map[string]string{},
		},
	}

	prev := Services{
		Documents:       documentService,
		Study:           studyService,
		Sessions:        sessionService,
		Settings:        settingsService,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		Runtime:         runtimeConfig,
	}
	SetServices(Services{
		Documents: ts.documents,
		Study:     ts.study,
		Sessions:  ts.sessions,
		Settings:  ts.settings,
		Runtime:   domain.DefaultRuntimeConfig("/tmp/sercha-study"),
	})

	return ts, func() {
		SetServices(prev)
		resetAskFlags()
	}
}

func resetAskFlags() {
	askMode = string(domain.ModeExplain)
	askInput = ""
	askNumItems = 0
	askTopK = 0
	askSession = ""
	askJSON = false
	for _, name := range []string{"mode", "input", "num-items", "top-k", "session", "json"} {
		if f := askCmd.Flags().Lookup(name); f != nil {
			f.Changed = false
		}
	}
}

// clearServices removes every service for "not configured" tests.
func clearServices() func() {
	prev := Services{
		Documents: documentService,
		Study:     studyService,
		Sessions:  sessionService,
		Settings:  settingsService,
		Runtime:   runtimeConfig,
	}
	SetServices(Services{Runtime: domain.DefaultRuntimeConfig(".")})
	return func() { SetServices(prev) }
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
