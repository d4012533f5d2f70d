package sqlite

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"github.com/custodia-labs/sercha-study/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/postprocessors/chunker"
)

// MetadataDir is the directory under the storage root holding metadata files.
const MetadataDir = "metadata"

const (
	extension = ".db"
	dsnParams = "?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	documentColumns = "id, source_path, title, mime_type, status, chunk_count, created_at"
	chunkColumns    = "id, document_id, content, position, start_offset, end_offset"
)

var _ driven.MetadataStore = (*Store)(nil)

// Store keeps one SQLite database per document.
type Store struct {
	dir string
}

// NewStore creates a store keeping its files in dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: metadata directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op; connections do not outlive an operation.
func (s *Store) Close() error { return nil }

// Dir returns the directory holding the metadata files.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(docID string) (string, error) {
	if docID == "" || docID != filepath.Base(docID) || strings.HasPrefix(docID, ".") {
		return "", fmt.Errorf("%w: invalid document id %q", domain.ErrInvalidInput, docID)
	}
	return filepath.Join(s.dir, docID+extension), nil
}

// open returns a migrated connection to docID's database. Unless create is
// set, a missing file is domain.ErrNotFound.
func (s *Store) open(docID string, create bool) (*sql.DB, error) {
	path, err := s.path(docID)
	if err != nil {
		return nil, err
	}
	if !create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: metadata for %s", domain.ErrNotFound, docID)
		} else if err != nil {
			return nil, fmt.Errorf("stat metadata: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", docID, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrations.Apply(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// with runs fn against docID's database and closes it afterwards.
func (s *Store) with(docID string, create bool, fn func(*sql.DB) error) error {
	db, err := s.open(docID, create)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// SaveDocument creates the metadata file for doc. A document without a
// status is saved as pending.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.ErrInvalidInput
	}
	path, err := s.path(doc.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: metadata for %s", domain.ErrAlreadyExists, doc.ID)
	}

	return s.with(doc.ID, true, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			"INSERT INTO documents ("+documentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			doc.ID, doc.SourcePath, doc.Title, doc.MIMEType,
			string(cmp.Or(doc.Status, domain.DocumentPending)), doc.ChunkCount,
			doc.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return nil
	})
}

// MarkReady flips the document status to ready.
func (s *Store) MarkReady(ctx context.Context, docID string) error {
	return s.with(docID, false, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, "UPDATE documents SET status = ? WHERE id = ?",
			string(domain.DocumentReady), docID)
		if err != nil {
			return fmt.Errorf("mark ready: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
		}
		return nil
	})
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, docID string) (*domain.Document, error) {
	var doc *domain.Document
	err := s.with(docID, false, func(db *sql.DB) error {
		var err error
		doc, err = scanDocument(db.QueryRowContext(ctx,
			"SELECT "+documentColumns+" FROM documents WHERE id = ?", docID))
		return err
	})
	return doc, err
}

// ListDocuments returns every document with a metadata file, oldest first.
// A file without a document row is reported as pending so it can be pruned.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read metadata directory: %w", err)
	}

	docs := make([]domain.Document, 0, len(entries))
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), extension)
		if e.IsDir() || !ok {
			continue
		}
		doc, err := s.GetDocument(ctx, id)
		switch {
		case err == nil:
			docs = append(docs, *doc)
		case errors.Is(err, domain.ErrNotFound):
			docs = append(docs, domain.Document{ID: id, Status: domain.DocumentPending})
		default:
			return nil, err
		}
	}

	slices.SortStableFunc(docs, func(a, b domain.Document) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return docs, nil
}

// Put stores a single chunk.
func (s *Store) Put(ctx context.Context, chunk domain.Chunk) error {
	return s.PutChunks(ctx, []domain.Chunk{chunk})
}

// PutChunks stores chunks of one document in a single transaction and
// refreshes the document's chunk count. Nothing is written if any chunk
// fails.
func (s *Store) PutChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docID := chunks[0].DocumentID
	for _, c := range chunks[1:] {
		if c.DocumentID != docID {
			return fmt.Errorf("%w: chunks span documents %s and %s", domain.ErrInvalidInput, docID, c.DocumentID)
		}
	}

	return s.with(docID, false, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO chunks ("+chunkColumns+") VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range chunks {
			_, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Content, c.Position, c.StartOffset, c.EndOffset)
			if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
				return fmt.Errorf("%w: chunk %s", domain.ErrAlreadyExists, c.ID)
			}
			if err != nil {
				return fmt.Errorf("insert chunk %s: %w", c.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE documents SET chunk_count = (SELECT COUNT(*) FROM chunks WHERE document_id = ?) WHERE id = ?",
			docID, docID); err != nil {
			return fmt.Errorf("update chunk count: %w", err)
		}
		return tx.Commit()
	})
}

// Get retrieves a chunk by ID. The owning document is read from the ID.
func (s *Store) Get(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	docID, _, err := chunker.ParseChunkID(chunkID)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
	}

	var c domain.Chunk
	err = s.with(docID, false, func(db *sql.DB) error {
		err := scanChunk(db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", chunkID), &c)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByDoc retrieves all chunks for a document in position order.
func (s *Store) GetByDoc(ctx context.Context, docID string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.with(docID, false, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? ORDER BY position", docID)
		if err != nil {
			return fmt.Errorf("query chunks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c domain.Chunk
			if err := scanChunk(rows, &c); err != nil {
				return err
			}
			chunks = append(chunks, c)
		}
		return rows.Err()
	})
	return chunks, err
}

// DeleteByDoc removes the document's metadata file and any journal left
// beside it. A missing file is not an error.
func (s *Store) DeleteByDoc(_ context.Context, docID string) error {
	path, err := s.path(docID)
	if err != nil {
		return err
	}
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove metadata: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChunk(row scanner, c *domain.Chunk) error {
	return row.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Position, &c.StartOffset, &c.EndOffset)
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc     domain.Document
		status  string
		created string
	)
	err := row.Scan(&doc.ID, &doc.SourcePath, &doc.Title, &doc.MIMEType, &status, &doc.ChunkCount, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &doc, nil
}
