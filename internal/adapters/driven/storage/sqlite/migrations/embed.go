// Package migrations holds the metadata schema: documents and their chunks,
// versioned by file prefix. Pending *.up.sql files run in order on open.
package migrations

import "embed"

// FS is the embedded set of *.up.sql and *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
