package services

import (
	"context"
	"errors"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/normalisers"
	"github.com/custodia-labs/sercha-study/internal/postprocessors"
)

// --- Mock implementations ---

const mockDims = 256

// mockEmbeddingService hashes words into a small bag-of-words vector so
// texts sharing words score higher.
type mockEmbeddingService struct {
	mu       sync.Mutex
	provider domain.AIProvider
	model    string
	dims     int
	embedErr error
	calls    int
}

func newMockEmbedder() *mockEmbeddingService {
	return &mockEmbeddingService{provider: domain.AIProviderOllama, model: "mock-embed", dims: mockDims}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,;:!?\"'")))
		v[int(h.Sum32())%m.dims]++
	}
	v[0] += 0.01 // never all zero
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int             { return m.dims }
func (m *mockEmbeddingService) ModelName() string           { return m.model }
func (m *mockEmbeddingService) Provider() domain.AIProvider { return m.provider }
func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}
func (m *mockEmbeddingService) Close() error { return nil }

// mockLLMService replays scripted responses and records prompts.
type mockLLMService struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	opts      []driven.GenerateOptions
	chats     [][]driven.ChatMessage
}

func (m *mockLLMService) next() (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", errors.New("mock llm: no scripted response")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	return m.next()
}

func (m *mockLLMService) Chat(_ context.Context, msgs []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, msgs)
	return m.next()
}

func (m *mockLLMService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts) + len(m.chats)
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// faultyIndex fails selected operations of a real index.
type faultyIndex struct {
	driven.VectorIndex
	buildErr   error
	persistErr error
}

func (f *faultyIndex) Build(ctx context.Context, m domain.IndexManifest, e []domain.IndexEntry) error {
	if f.buildErr != nil {
		return f.buildErr
	}
	return f.VectorIndex.Build(ctx, m, e)
}

func (f *faultyIndex) Persist(ctx context.Context, docID string) error {
	if f.persistErr != nil {
		return f.persistErr
	}
	return f.VectorIndex.Persist(ctx, docID)
}

// faultyStore fails selected operations of a real metadata store.
type faultyStore struct {
	driven.MetadataStore
	putErr       error
	markReadyErr error
	missingChunk string
}

func (f *faultyStore) PutChunks(ctx context.Context, chunks []domain.Chunk) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MetadataStore.PutChunks(ctx, chunks)
}

func (f *faultyStore) MarkReady(ctx context.Context, docID string) error {
	if f.markReadyErr != nil {
		return f.markReadyErr
	}
	return f.MetadataStore.MarkReady(ctx, docID)
}

func (f *faultyStore) Get(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	if chunkID == f.missingChunk {
		return nil, domain.ErrNotFound
	}
	return f.MetadataStore.Get(ctx, chunkID)
}

// --- Fixture ---

type fixture struct {
	dir       string
	store     *memory.MetadataStore
	index     *flat.Index
	embedder  *mockEmbeddingService
	llm       *mockLLMService
	sessions  *memory.SessionStore
	locks     *DocLocks
	cfg       domain.RuntimeConfig
	documents *DocumentService
	retriever *RetrievalService
	study     *StudyService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	index, err := flat.New(flat.Config{Dir: filepath.Join(dir, "indices")})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	sessions, err := memory.NewSessionStore(10, 10)
	require.NoError(t, err)

	f := &fixture{
		dir:      dir,
		store:    memory.NewMetadataStore(),
		index:    index,
		embedder: newMockEmbedder(),
		llm:      &mockLLMService{},
		sessions: sessions,
		locks:    NewDocLocks(),
		cfg:      domain.DefaultRuntimeConfig(dir),
	}
	f.wire(t, f.index, f.store)
	return f
}

// wire (re)builds the services over the given index and store.
func (f *fixture) wire(t *testing.T, index driven.VectorIndex, store driven.MetadataStore) {
	t.Helper()
	chunker, err := postprocessors.NewChunker(f.cfg)
	require.NoError(t, err)

	prompts, err := file.NewPromptStore(filepath.Join(f.dir, "prompts"))
	require.NoError(t, err)

	f.documents = NewDocumentService(normalisers.Default(), chunker, f.embedder, index, store, f.locks, f.cfg.MaxUploadBytes)
	f.retriever = NewRetrievalService(f.embedder, index, store, f.locks)
	f.study = NewStudyService(f.retriever, f.llm, prompts, f.sessions, f.cfg)
}

func (f *fixture) ingest(t *testing.T, name, content string) *domain.Document {
	t.Helper()
	doc, err := f.documents.Ingest(context.Background(), []byte(content), name)
	require.NoError(t, err)
	return doc
}

// studyText is 1200 characters of prose about photosynthesis and the
// water cycle.
func studyText() string {
	parts := []string{
		"Photosynthesis converts light energy into chemical energy stored in glucose. ",
		"Chlorophyll in the chloroplasts absorbs red and blue light and reflects green. ",
		"The water cycle moves water through evaporation, condensation and precipitation. ",
		"Clouds form when water vapour cools and condenses around tiny dust particles. ",
	}
	var b strings.Builder
	for i := 0; b.Len() < 1200; i++ {
		b.WriteString(parts[i%len(parts)])
	}
	return b.String()[:1200]
}
