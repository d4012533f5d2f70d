// Package sqlite is the metadata store: one SQLite file per document,
// <dir>/<doc_id>.db, holding the document row and its chunks. Creating or
// deleting a document's metadata is creating or deleting that file.
//
// The driver is modernc.org/sqlite, so no cgo is needed. Every operation
// opens its own connection and applies pending migrations first; writers to
// one document are serialised by the caller's per-document lock.
package sqlite
