package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService ingests documents and manages their artifacts.
//
// Ingest is fail closed: a document only becomes ready once both its
// metadata and its index are durable, and any failure after the first write
// removes both.
type DocumentService struct {
	extractors driven.ExtractorRegistry
	chunker    driven.Chunker
	embedder   driven.EmbeddingService
	index      driven.VectorIndex
	store      driven.MetadataStore
	locks      *DocLocks

	maxUploadBytes int64
	newID          func() string
	now            func() time.Time
}

// NewDocumentService creates a new document service.
// The embedder may be nil, in which case Ingest and Reindex fail with
// domain.ErrEmbeddingUnavailable.
func NewDocumentService(
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	store driven.MetadataStore,
	locks *DocLocks,
	maxUploadBytes int64,
) *DocumentService {
	if locks == nil {
		locks = NewDocLocks()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = domain.DefaultMaxUploadBytes
	}
	return &DocumentService{
		extractors:     extractors,
		chunker:        chunker,
		embedder:       embedder,
		index:          index,
		store:          store,
		locks:          locks,
		maxUploadBytes: maxUploadBytes,
		newID:          func() string { return uuid.New().String() },
		now:            time.Now,
	}
}

// Ingest extracts, chunks, embeds and indexes a file.
func (s *DocumentService) Ingest(ctx context.Context, content []byte, filename string) (*domain.Document, error) {
	logger.Section("Ingest")

	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, name)
	}
	if int64(len(content)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			domain.ErrFileTooLarge, name, len(content), s.maxUploadBytes)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	// Nothing is written until every chunk has a vector.
	raw := &domain.RawDocument{Filename: name, Content: content}
	text, err := s.extractors.Extract(ctx, raw)
	if err != nil {
		return nil, err
	}
	logger.Debug("Extracted %d bytes of text from %s (%s)", len(text), name, raw.MIMEType)

	docID := s.newID()
	chunks := s.chunker.Chunk(docID, text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s produced no text", domain.ErrExtraction, name)
	}

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:         docID,
		SourcePath: filename,
		Title:      name,
		MIMEType:   raw.MIMEType,
		Status:     domain.DocumentPending,
		ChunkCount: len(chunks),
		CreatedAt:  s.now().UTC(),
	}

	unlock := s.locks.Lock(docID)
	defer unlock()

	if err := s.commit(ctx, doc, chunks, vectors); err != nil {
		s.discard(ctx, docID)
		return nil, err
	}

	doc.Status = domain.DocumentReady
	logger.Info("Ingested %s as %s (%d chunks)", name, docID, len(chunks))
	return doc, nil
}

// embed returns one vector per chunk, all of the provider's dimension.
func (s *DocumentService) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrProviderUnavailable, len(vectors), len(chunks))
	}

	dims := s.embedder.Dimensions()
	if dims <= 0 {
		dims = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dims || dims == 0 {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, want %d",
				domain.ErrProviderUnavailable, i, len(v), dims)
		}
	}
	return vectors, nil
}

// commit runs the write half of the ingest protocol.
func (s *DocumentService) commit(
	ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32,
) error {
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	if err := s.store.PutChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}
	if err := s.buildIndex(ctx, doc.ID, chunks, vectors); err != nil {
		return err
	}
	if err := s.store.MarkReady(ctx, doc.ID); err != nil {
		return fmt.Errorf("marking document ready: %w", err)
	}
	return nil
}

func (s *DocumentService) buildIndex(
	ctx context.Context, docID string, chunks []domain.Chunk, vectors [][]float32,
) error {
	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexEntry{ChunkID: c.ID, Vector: vectors[i]}
	}
	manifest := domain.IndexManifest{
		DocID:      docID,
		Provider:   s.embedder.Provider(),
		Model:      s.embedder.ModelName(),
		Dimensions: len(vectors[0]),
		Metric:     domain.MetricCosine,
		ChunkCount: len(chunks),
		CreatedAt:  s.now().UTC(),
	}

	if err := s.index.Build(ctx, manifest, entries); err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	if err := s.index.Persist(ctx, docID); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	return nil
}

// discard removes both artifacts of docID. Cleanup runs even when ctx was
// cancelled, since cancellation is a common cause of the failure.
func (s *DocumentService) discard(ctx context.Context, docID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.index.Delete(ctx, docID); err != nil {
		logger.Warn("Failed to remove index for %s: %v", docID, err)
	}
	if err := s.store.DeleteByDoc(ctx, docID); err != nil {
		logger.Warn("Failed to remove metadata for %s: %v", docID, err)
	}
	logger.Debug("Discarded artifacts of %s", docID)
}

// List returns all documents, including incomplete ones.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Get returns a document with its index manifest.
func (s *DocumentService) Get(ctx context.Context, docID string) (*driving.DocumentDetails, error) {
	unlock := s.locks.RLock(docID)
	defer unlock()
	return s.details(ctx, docID)
}

func (s *DocumentService) details(ctx context.Context, docID string) (*driving.DocumentDetails, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	details := &driving.DocumentDetails{Document: *doc}
	manifest, err := s.index.Manifest(ctx, docID)
	switch {
	case err == nil:
		details.Manifest = manifest
		details.Compatible = compatible(*manifest, s.embedder)
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("reading index manifest: %w", err)
	}
	return details, nil
}

// Delete removes a document's index and metadata.
func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	unlock := s.locks.Lock(docID)
	defer unlock()

	if err := s.index.Delete(ctx, docID); err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}
	if err := s.store.DeleteByDoc(ctx, docID); err != nil {
		return fmt.Errorf("deleting metadata: %w", err)
	}
	logger.Info("Deleted document %s", docID)
	return nil
}

// Prune removes pending documents, documents whose index is missing and
// indices whose metadata is missing.
func (s *DocumentService) Prune(ctx context.Context) ([]string, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := s.index.List(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]bool, len(docs)+len(indexed))
	for _, d := range docs {
		candidates[d.ID] = true
	}
	for _, id := range indexed {
		candidates[id] = true
	}

	var pruned []string
	for _, d := range docs {
		ok, err := s.pruneOne(ctx, d.ID)
		if err != nil {
			return pruned, err
		}
		if ok {
			pruned = append(pruned, d.ID)
		}
		delete(candidates, d.ID)
	}
	for _, id := range indexed {
		if !candidates[id] {
			continue
		}
		ok, err := s.pruneOne(ctx, id)
		if err != nil {
			return pruned, err
		}
		if ok {
			pruned = append(pruned, id)
		}
	}

	if len(pruned) > 0 {
		logger.Info("Pruned %d incomplete documents", len(pruned))
	}
	return pruned, nil
}

// pruneOne removes docID if it is incomplete. The state is re-read under the
// write lock so a concurrent ingest is never mistaken for a crash.
func (s *DocumentService) pruneOne(ctx context.Context, docID string) (bool, error) {
	unlock := s.locks.Lock(docID)
	defer unlock()

	complete, err := s.isComplete(ctx, docID)
	if err != nil || complete {
		return false, err
	}

	if err := s.index.Delete(ctx, docID); err != nil {
		return false, fmt.Errorf("deleting index: %w", err)
	}
	if err := s.store.DeleteByDoc(ctx, docID); err != nil {
		return false, fmt.Errorf("deleting metadata: %w", err)
	}
	return true, nil
}

func (s *DocumentService) isComplete(ctx context.Context, docID string) (bool, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !doc.IsReady() {
		return false, nil
	}
	if _, err := s.index.Manifest(ctx, docID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reindex re-embeds the stored chunks of a ready document under the active
// embedding provider. The old index is only replaced once the new vectors
// exist; if rebuilding fails afterwards the document is discarded.
func (s *DocumentService) Reindex(ctx context.Context, docID string) (*driving.DocumentDetails, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	unlock := s.locks.Lock(docID)
	defer unlock()

	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !doc.IsReady() {
		return nil, fmt.Errorf("%w: document %s is incomplete", domain.ErrNotFound, docID)
	}
	chunks, err := s.store.GetByDoc(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s has no chunks", domain.ErrNotFound, docID)
	}

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if err := s.index.Delete(ctx, docID); err != nil {
		return nil, fmt.Errorf("deleting index: %w", err)
	}
	if err := s.buildIndex(ctx, docID, chunks, vectors); err != nil {
		s.discard(ctx, docID)
		return nil, err
	}

	logger.Info("Reindexed %s with %s/%s", docID, s.embedder.Provider(), s.embedder.ModelName())
	return s.details(ctx, docID)
}

// compatible reports whether queries embedded by e can search an index
// built under m. A provider that has not yet learned its dimension is
// checked by the index on the first search.
func compatible(m domain.IndexManifest, e driven.EmbeddingService) bool {
	if e == nil {
		return false
	}
	dims := e.Dimensions()
	if dims <= 0 {
		dims = m.Dimensions
	}
	return m.Compatible(e.Provider(), e.ModelName(), dims)
}
