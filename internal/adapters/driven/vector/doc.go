// Package vector holds the VectorIndex backends.
//
// Each backend keeps one index per document under
// <storage_root>/indices/<doc_id>.index and stores the IndexManifest inside
// the artifact, so an index built under one embedding provider is never
// queried with vectors from another.
//
//   - flat: exact cosine scan in pure Go, artifact is a SQLite file written
//     with modernc.org/sqlite. Default.
//   - sqlitevec: sqlite-vec vec0 virtual table, requires cgo.
package vector
