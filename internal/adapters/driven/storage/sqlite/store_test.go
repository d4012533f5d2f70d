package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/postprocessors/chunker"
)

// setupTestStore creates a store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), MetadataDir))
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

// createTestDocument saves a pending document with the given ID.
func createTestDocument(t *testing.T, store *Store, docID string, createdAt time.Time) {
	t.Helper()
	err := store.SaveDocument(context.Background(), &domain.Document{
		ID:         docID,
		SourcePath: docID + ".md",
		Title:      "Title " + docID,
		MIMEType:   "text/markdown",
		CreatedAt:  createdAt,
	})
	require.NoError(t, err)
}

func testChunks(docID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range n {
		chunks[i] = domain.Chunk{
			ID:          chunker.ChunkID(docID, i),
			DocumentID:  docID,
			Content:     "chunk content",
			Position:    i,
			StartOffset: i * 10,
			EndOffset:   i*10 + 13,
		}
	}
	return chunks
}

func TestNewStore_RequiresDir(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSaveDocument_Pending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	createTestDocument(t, store, "doc1", created)
	assert.FileExists(t, filepath.Join(store.Dir(), "doc1.db"))

	doc, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "doc1", doc.ID)
	assert.Equal(t, "doc1.md", doc.SourcePath)
	assert.Equal(t, "Title doc1", doc.Title)
	assert.Equal(t, "text/markdown", doc.MIMEType)
	assert.Equal(t, domain.DocumentPending, doc.Status)
	assert.True(t, created.Equal(doc.CreatedAt))
	assert.False(t, doc.IsReady())
}

func TestSaveDocument_AlreadyExists(t *testing.T) {
	store := setupTestStore(t)
	createTestDocument(t, store, "doc1", time.Now())

	err := store.SaveDocument(context.Background(), &domain.Document{ID: "doc1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSaveDocument_InvalidID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveDocument(ctx, &domain.Document{ID: "../escape"}), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveDocument(ctx, &domain.Document{ID: ""}), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveDocument(ctx, nil), domain.ErrInvalidInput)
}

func TestMarkReady(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestDocument(t, store, "doc1", time.Now())

	require.NoError(t, store.MarkReady(ctx, "doc1"))

	doc, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentReady, doc.Status)
}

func TestMarkReady_NotFound(t *testing.T) {
	store := setupTestStore(t)
	assert.ErrorIs(t, store.MarkReady(context.Background(), "missing"), domain.ErrNotFound)
}

func TestGetDocument_NotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Lookups never create files.
	assert.NoFileExists(t, filepath.Join(store.Dir(), "missing.db"))
}

func TestPutChunks_OrderedByPosition(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestDocument(t, store, "doc1", time.Now())

	chunks := testChunks("doc1", 5)
	// Insert out of order.
	shuffled := []domain.Chunk{chunks[3], chunks[0], chunks[4], chunks[1], chunks[2]}
	require.NoError(t, store.PutChunks(ctx, shuffled))

	got, err := store.GetByDoc(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, c := range got {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, chunks[i].ID, c.ID)
		assert.Equal(t, chunks[i].StartOffset, c.StartOffset)
		assert.Equal(t, chunks[i].EndOffset, c.EndOffset)
	}

	doc, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 5, doc.ChunkCount)
}

func TestPutChunks_RejectsMixedDocuments(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestDocument(t, store, "doc1", time.Now())

	chunks := append(testChunks("doc1", 1), testChunks("doc2", 1)...)
	assert.ErrorIs(t, store.PutChunks(ctx, chunks), domain.ErrInvalidInput)
}

func TestPutChunks_DuplicateIsAtomic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestDocument(t, store, "doc1", time.Now())

	chunks := testChunks("doc1", 2)
	require.NoError(t, store.PutChunks(ctx, chunks[:1]))

	err := store.PutChunks(ctx, []domain.Chunk{chunks[1], chunks[0]})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := store.GetByDoc(ctx, "doc1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPutChunks_MissingDocument(t *testing.T) {
	store := setupTestStore(t)
	err := store.PutChunks(context.Background(), testChunks("ghost", 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPut_Single(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestDocument(t, store, "doc1", time.Now())

	chunk := testChunks("doc1", 1)[0]
	require.NoError(t, store.Put(ctx, chunk))

	got, err := store.Get(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk.Content, got.Content)
	assert.Equal(t, "doc1", got.DocumentID)
}

func TestGet_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestDocument(t, store, "doc1", time.Now())

	_, err := store.Get(ctx, chunker.ChunkID("doc1", 7))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Get(ctx, chunker.ChunkID("other", 0))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Get(ctx, "not-a-chunk-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDocuments(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	createTestDocument(t, store, "second", base.Add(time.Hour))
	createTestDocument(t, store, "first", base)
	require.NoError(t, store.MarkReady(ctx, "first"))

	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0600))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first", docs[0].ID)
	assert.Equal(t, domain.DocumentReady, docs[0].Status)
	assert.Equal(t, "second", docs[1].ID)
	assert.Equal(t, domain.DocumentPending, docs[1].Status)
}

func TestListDocuments_FileWithoutRowIsPending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Simulates a crash between creating the file and inserting the row.
	db, err := store.open("orphan", true)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "orphan", docs[0].ID)
	assert.Equal(t, domain.DocumentPending, docs[0].Status)
}

func TestDeleteByDoc_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestDocument(t, store, "doc1", time.Now())
	require.NoError(t, store.PutChunks(ctx, testChunks("doc1", 3)))

	require.NoError(t, store.DeleteByDoc(ctx, "doc1"))
	require.NoError(t, store.DeleteByDoc(ctx, "doc1"))

	assert.NoFileExists(t, filepath.Join(store.Dir(), "doc1.db"))

	_, err := store.GetDocument(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetByDoc(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMigrate_RecordsVersion(t *testing.T) {
	store := setupTestStore(t)
	createTestDocument(t, store, "doc1", time.Now())

	db, err := store.open("doc1", false)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count, "reopening must not re-run migrations")
}
