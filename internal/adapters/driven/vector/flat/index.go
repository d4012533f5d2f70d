// Package flat provides an exact nearest-neighbour VectorIndex.
//
// Every search scans all rows of the document's index. Study documents hold
// at most a few thousand chunks, so the scan stays well under a millisecond
// and results are exact and reproducible.
//
// An index lives in memory after Build until Persist writes it to
// <dir>/<doc_id>.index. Persisted indices are kept in an LRU cache and
// reloaded from disk on demand.
package flat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-study/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultMaxCached is the number of loaded indices kept in memory.
const DefaultMaxCached = 16

// Config configures the flat index.
type Config struct {
	// Dir holds the index artifacts.
	Dir string

	// MaxCached bounds the LRU of loaded indices (default: 16).
	MaxCached int
}

// row is one embedded chunk. Vectors are L2-normalised.
type row struct {
	id      int64
	chunkID string
	raw     []float32
	unit    []float32
}

type memIndex struct {
	manifest domain.IndexManifest
	rows     []row
}

// Index is a flat cosine-similarity index, one per document.
type Index struct {
	dir string

	mu      sync.Mutex
	pending map[string]*memIndex // built, not yet persisted

	cache *lru.Cache[string, *memIndex]
	loads singleflight.Group
}

// New creates a flat index storing artifacts in cfg.Dir.
func New(cfg Config) (*Index, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: index directory is required", domain.ErrInvalidInput)
	}
	if cfg.MaxCached <= 0 {
		cfg.MaxCached = DefaultMaxCached
	}
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	cache, err := lru.New[string, *memIndex](cfg.MaxCached)
	if err != nil {
		return nil, fmt.Errorf("creating index cache: %w", err)
	}

	return &Index{
		dir:     cfg.Dir,
		pending: make(map[string]*memIndex),
		cache:   cache,
	}, nil
}

// Build creates the in-memory index for manifest.DocID. Row ids follow the
// order of entries, starting at 1.
func (x *Index) Build(_ context.Context, manifest domain.IndexManifest, entries []domain.IndexEntry) error {
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
	if manifest.Metric == "" {
		manifest.Metric = domain.MetricCosine
	}
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now()
	}
	manifest.ChunkCount = len(entries)

	m := &memIndex{manifest: manifest, rows: make([]row, len(entries))}
	for i, e := range entries {
		if len(e.Vector) != manifest.Dimensions {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d",
				domain.ErrInvalidInput, e.ChunkID, len(e.Vector), manifest.Dimensions)
		}
		m.rows[i] = row{
			id:      int64(i + 1),
			chunkID: e.ChunkID,
			raw:     e.Vector,
			unit:    vector.Normalize(e.Vector),
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.pending[manifest.DocID]; ok || x.cache.Contains(manifest.DocID) {
		return fmt.Errorf("%w: index for %s", domain.ErrAlreadyExists, manifest.DocID)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: index artifact for %s", domain.ErrAlreadyExists, manifest.DocID)
	}

	x.pending[manifest.DocID] = m
	return nil
}

// Search scores every row against query and returns the best k.
func (x *Index) Search(ctx context.Context, docID string, query []float32, k int) ([]domain.VectorHit, error) {
	m, err := x.get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(query) != m.manifest.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index for %s has %d",
			domain.ErrProviderMismatch, len(query), docID, m.manifest.Dimensions)
	}
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}

	q := vector.Normalize(query)
	hits := make([]domain.VectorHit, len(m.rows))
	for i, r := range m.rows {
		hits[i] = domain.VectorHit{RowID: r.id, ChunkID: r.chunkID, Score: vector.Dot(q, r.unit)}
	}
	return vector.Rank(hits, k), nil
}

// Persist writes a built index to disk through a temporary file and an
// atomic rename. Persisting an index that is already on disk is a no-op.
func (x *Index) Persist(ctx context.Context, docID string) error {
	path, err := vector.ArtifactPath(x.dir, docID)
	if err != nil {
		return err
	}

	x.mu.Lock()
	m, ok := x.pending[docID]
	x.mu.Unlock()
	if !ok {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		return fmt.Errorf("%w: no built index for %s", domain.ErrNotFound, docID)
	}

	if err := writeArtifact(ctx, path, m); err != nil {
		return err
	}

	x.mu.Lock()
	delete(x.pending, docID)
	x.mu.Unlock()
	x.cache.Add(docID, m)
	return nil
}

// Load reads a persisted index into the cache.
func (x *Index) Load(ctx context.Context, docID string) error {
	_, err := x.load(ctx, docID)
	return err
}

// Manifest returns the manifest of a built or persisted index.
func (x *Index) Manifest(ctx context.Context, docID string) (*domain.IndexManifest, error) {
	m, err := x.get(ctx, docID)
	if err != nil {
		return nil, err
	}
	manifest := m.manifest
	return &manifest, nil
}

// Delete drops the index from memory and removes its artifact.
func (x *Index) Delete(_ context.Context, docID string) error {
	path, err := vector.ArtifactPath(x.dir, docID)
	if err != nil {
		return err
	}

	x.mu.Lock()
	delete(x.pending, docID)
	x.mu.Unlock()
	x.cache.Remove(docID)

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

// Close drops all in-memory indices.
func (x *Index) Close() error {
	x.mu.Lock()
	x.pending = make(map[string]*memIndex)
	x.mu.Unlock()
	x.cache.Purge()
	return nil
}

// get returns the pending or persisted index for docID.
func (x *Index) get(ctx context.Context, docID string) (*memIndex, error) {
	x.mu.Lock()
	m, ok := x.pending[docID]
	x.mu.Unlock()
	if ok {
		return m, nil
	}
	if m, ok := x.cache.Get(docID); ok {
		return m, nil
	}
	return x.load(ctx, docID)
}

func (x *Index) load(ctx context.Context, docID string) (*memIndex, error) {
	path, err := vector.ArtifactPath(x.dir, docID)
	if err != nil {
		return nil, err
	}

	v, err, _ := x.loads.Do(docID, func() (any, error) {
		if m, ok := x.cache.Get(docID); ok {
			return m, nil
		}
		m, err := readArtifact(ctx, path)
		if err != nil {
			return nil, err
		}
		x.cache.Add(docID, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*memIndex), nil
}

const schema = `
CREATE TABLE manifest (
	doc_id      TEXT NOT NULL,
	provider    TEXT NOT NULL,
	model       TEXT NOT NULL,
	dimensions  INTEGER NOT NULL,
	metric      TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE vectors (
	row_id    INTEGER PRIMARY KEY,
	chunk_id  TEXT NOT NULL UNIQUE,
	embedding BLOB NOT NULL
);
`

func openArtifact(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening index artifact: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func writeArtifact(ctx context.Context, path string, m *memIndex) error {
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale temp artifact: %w", err)
	}

	if err := fillArtifact(ctx, tmp, m); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("renaming index artifact: %w", err)
	}
	return nil
}

func fillArtifact(ctx context.Context, path string, m *memIndex) error {
	db, err := openArtifact(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating index schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	mf := m.manifest
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO manifest (doc_id, provider, model, dimensions, metric, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, mf.DocID, string(mf.Provider), mf.Model, mf.Dimensions, mf.Metric, mf.ChunkCount,
		mf.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vectors (row_id, chunk_id, embedding) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range m.rows {
		if _, err := stmt.ExecContext(ctx, r.id, r.chunkID, float32SliceToBytes(r.raw)); err != nil {
			return fmt.Errorf("writing vector %d: %w", r.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func readArtifact(ctx context.Context, path string) (*memIndex, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: index artifact %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading index artifact: %w", err)
	}

	db, err := openArtifact(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var (
		m         memIndex
		provider  string
		createdAt string
	)
	err = db.QueryRowContext(ctx, `
		SELECT doc_id, provider, model, dimensions, metric, chunk_count, created_at FROM manifest
	`).Scan(&m.manifest.DocID, &provider, &m.manifest.Model, &m.manifest.Dimensions,
		&m.manifest.Metric, &m.manifest.ChunkCount, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m.manifest.Provider = domain.AIProvider(provider)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		m.manifest.CreatedAt = t
	}

	rows, err := db.QueryContext(ctx, "SELECT row_id, chunk_id, embedding FROM vectors ORDER BY row_id")
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	m.rows = make([]row, 0, m.manifest.ChunkCount)
	for rows.Next() {
		var (
			r    row
			blob []byte
		)
		if err := rows.Scan(&r.id, &r.chunkID, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		if r.raw, err = bytesToFloat32Slice(blob); err != nil {
			return nil, err
		}
		if len(r.raw) != m.manifest.Dimensions {
			return nil, fmt.Errorf("vector %d has %d dimensions, manifest says %d",
				r.id, len(r.raw), m.manifest.Dimensions)
		}
		r.unit = vector.Normalize(r.raw)
		m.rows = append(m.rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}
	return &m, nil
}
