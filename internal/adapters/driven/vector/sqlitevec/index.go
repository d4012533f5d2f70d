//go:build cgo

// Package sqlitevec provides a VectorIndex backed by the sqlite-vec
// extension. Each document gets its own SQLite file holding a vec0 virtual
// table with cosine distance, the chunk id mapping and the manifest.
package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-study/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Available reports whether this build includes the sqlite-vec backend.
const Available = true

// DefaultMaxOpen is the number of per-document databases kept open.
const DefaultMaxOpen = 16

// Config configures the sqlite-vec index.
type Config struct {
	// Dir holds the index artifacts.
	Dir string

	// MaxOpen bounds the number of open artifact handles (default: 16).
	MaxOpen int
}

// handle is an open artifact. refs and retired are guarded by Index.mu;
// a retired handle is closed once the last reader releases it.
type handle struct {
	db       *sql.DB
	manifest domain.IndexManifest
	refs     int
	retired  bool
}

func (h *handle) retire() {
	h.retired = true
	if h.refs == 0 {
		h.db.Close()
	}
}

// Index stores one sqlite-vec database per document.
type Index struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*handle // written to <path>.tmp, not yet renamed
	open    *lru.Cache[string, *handle]
}

// New creates a sqlite-vec index storing artifacts in cfg.Dir.
func New(cfg Config, logger *zap.Logger) (*Index, error) {
	sqlite_vec.Auto()

	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: index directory is required", domain.ErrInvalidInput)
	}
	if cfg.MaxOpen <= 0 {
		cfg.MaxOpen = DefaultMaxOpen
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	// Eviction runs under Index.mu: every Add, Remove and Purge holds it.
	open, err := lru.NewWithEvict[string, *handle](cfg.MaxOpen, func(_ string, h *handle) {
		h.retire()
	})
	if err != nil {
		return nil, fmt.Errorf("creating handle cache: %w", err)
	}

	return &Index{
		dir:     cfg.Dir,
		logger:  logger,
		pending: make(map[string]*handle),
		open:    open,
	}, nil
}

// Build writes the vectors into a temporary database for manifest.DocID.
func (x *Index) Build(ctx context.Context, manifest domain.IndexManifest, entries []domain.IndexEntry) error {
	path, err := vector.ArtifactPath(x.dir, manifest.DocID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no entries to index", domain.ErrInvalidInput)
	}
	if manifest.Dimensions == 0 {
		manifest.Dimensions = len(entries[0].Vector)
	}
	for _, e := range entries {
		if len(e.Vector) != manifest.Dimensions {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d",
				domain.ErrInvalidInput, e.ChunkID, len(e.Vector), manifest.Dimensions)
		}
	}
	manifest.Metric = domain.MetricCosine
	manifest.ChunkCount = len(entries)
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now()
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.pending[manifest.DocID]; ok || x.open.Contains(manifest.DocID) {
		return fmt.Errorf("%w: index for %s", domain.ErrAlreadyExists, manifest.DocID)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: index artifact for %s", domain.ErrAlreadyExists, manifest.DocID)
	}

	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale temp artifact: %w", err)
	}

	db, err := openDB(tmp)
	if err != nil {
		return err
	}
	if err := fill(ctx, db, manifest, entries); err != nil {
		db.Close()
		os.Remove(tmp) //nolint:errcheck
		return err
	}

	x.pending[manifest.DocID] = &handle{db: db, manifest: manifest}
	x.logger.Debug("built sqlite-vec index",
		zap.String("doc_id", manifest.DocID),
		zap.Int("rows", len(entries)),
	)
	return nil
}

// Search runs a KNN query against the document's vec0 table.
func (x *Index) Search(ctx context.Context, docID string, query []float32, k int) ([]domain.VectorHit, error) {
	h, release, err := x.get(ctx, docID)
	if err != nil {
		return nil, err
	}
	defer release()
	return x.query(ctx, h, docID, query, k)
}

func (x *Index) query(ctx context.Context, h *handle, docID string, query []float32, k int) ([]domain.VectorHit, error) {
	if len(query) != h.manifest.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index for %s has %d",
			domain.ErrProviderMismatch, len(query), docID, h.manifest.Dimensions)
	}
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}
	k = min(k, h.manifest.ChunkCount)

	blob, err := sqlite_vec.SerializeFloat32(vector.Normalize(query))
	if err != nil {
		return nil, fmt.Errorf("serializing query: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT v.rowid, c.chunk_id, v.distance
		FROM vec_chunks v
		INNER JOIN chunks c ON c.row_id = v.rowid
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	hits := make([]domain.VectorHit, 0, k)
	for rows.Next() {
		var (
			hit      domain.VectorHit
			distance float64
		)
		if err := rows.Scan(&hit.RowID, &hit.ChunkID, &distance); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hit.Score = 1 - distance
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}
	return vector.Rank(hits, k), nil
}

// Persist closes the temporary database and renames it into place.
func (x *Index) Persist(_ context.Context, docID string) error {
	path, err := vector.ArtifactPath(x.dir, docID)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	h, ok := x.pending[docID]
	if !ok {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		return fmt.Errorf("%w: no built index for %s", domain.ErrNotFound, docID)
	}

	if err := h.db.Close(); err != nil {
		return fmt.Errorf("closing index artifact: %w", err)
	}
	delete(x.pending, docID)

	if err := os.Rename(path+".tmp", path); err != nil {
		os.Remove(path + ".tmp") //nolint:errcheck
		return fmt.Errorf("renaming index artifact: %w", err)
	}
	return nil
}

// Load opens a persisted artifact.
func (x *Index) Load(ctx context.Context, docID string) error {
	_, release, err := x.get(ctx, docID)
	if err != nil {
		return err
	}
	release()
	return nil
}

// Manifest returns the manifest of a built or persisted index.
func (x *Index) Manifest(ctx context.Context, docID string) (*domain.IndexManifest, error) {
	h, release, err := x.get(ctx, docID)
	if err != nil {
		return nil, err
	}
	defer release()
	m := h.manifest
	return &m, nil
}

// Delete closes and removes the document's artifact.
func (x *Index) Delete(_ context.Context, docID string) error {
	path, err := vector.ArtifactPath(x.dir, docID)
	if err != nil {
		return err
	}

	x.mu.Lock()
	if h, ok := x.pending[docID]; ok {
		h.retire()
		delete(x.pending, docID)
	}
	x.open.Remove(docID)
	x.mu.Unlock()

	for _, p := range []string{path, path + ".tmp"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing index artifact: %w", err)
		}
	}
	return nil
}

// List returns the ids of every persisted index.
func (x *Index) List(_ context.Context) ([]string, error) {
	return vector.ListArtifacts(x.dir)
}

// Close closes every open artifact.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, h := range x.pending {
		h.retire()
		delete(x.pending, id)
	}
	x.open.Purge()
	return nil
}

// get returns the document's handle, opening the artifact if needed. The
// handle stays open until release is called, even if it is evicted or
// deleted meanwhile.
func (x *Index) get(ctx context.Context, docID string) (*handle, func(), error) {
	h, err := x.acquire(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	return h, func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		h.refs--
		if h.retired && h.refs == 0 {
			h.db.Close()
		}
	}, nil
}

func (x *Index) acquire(ctx context.Context, docID string) (*handle, error) {
	path, err := vector.ArtifactPath(x.dir, docID)
	if err != nil {
		return nil, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	h, ok := x.pending[docID]
	if !ok {
		h, ok = x.open.Get(docID)
	}
	if ok {
		h.refs++
		return h, nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: index artifact for %s", domain.ErrNotFound, docID)
		}
		return nil, fmt.Errorf("reading index artifact: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	m, err := readManifest(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	h = &handle{db: db, manifest: m, refs: 1}
	x.open.Add(docID, h)
	return h, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=DELETE&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening index artifact: %w", err)
	}
	db.SetMaxOpenConns(1)

	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}
	return db, nil
}

func fill(ctx context.Context, db *sql.DB, m domain.IndexManifest, entries []domain.IndexEntry) error {
	stmts := []string{
		`CREATE TABLE manifest (
			doc_id TEXT NOT NULL, provider TEXT NOT NULL, model TEXT NOT NULL,
			dimensions INTEGER NOT NULL, metric TEXT NOT NULL,
			chunk_count INTEGER NOT NULL, created_at TEXT NOT NULL
		)`,
		`CREATE TABLE chunks (row_id INTEGER PRIMARY KEY, chunk_id TEXT NOT NULL UNIQUE)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE vec_chunks USING vec0(embedding float[%d] distance_metric=cosine)`,
			m.Dimensions),
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("creating index schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO manifest (doc_id, provider, model, dimensions, metric, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.DocID, string(m.Provider), m.Model, m.Dimensions, m.Metric, m.ChunkCount,
		m.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	for i, e := range entries {
		rowID := int64(i + 1)
		blob, err := sqlite_vec.SerializeFloat32(vector.Normalize(e.Vector))
		if err != nil {
			return fmt.Errorf("serializing vector %d: %w", rowID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chunks (row_id, chunk_id) VALUES (?, ?)`,
			rowID, e.ChunkID); err != nil {
			return fmt.Errorf("writing chunk %d: %w", rowID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vec_chunks (rowid, embedding) VALUES (?, ?)`,
			rowID, blob); err != nil {
			return fmt.Errorf("writing vector %d: %w", rowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func readManifest(ctx context.Context, db *sql.DB) (domain.IndexManifest, error) {
	var (
		m         domain.IndexManifest
		provider  string
		createdAt string
	)
	err := db.QueryRowContext(ctx, `
		SELECT doc_id, provider, model, dimensions, metric, chunk_count, created_at FROM manifest
	`).Scan(&m.DocID, &provider, &m.Model, &m.Dimensions, &m.Metric, &m.ChunkCount, &createdAt)
	if err != nil {
		return m, fmt.Errorf("reading manifest: %w", err)
	}
	m.Provider = domain.AIProvider(provider)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		m.CreatedAt = t
	}
	return m, nil
}
