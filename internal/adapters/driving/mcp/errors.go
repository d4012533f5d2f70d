// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// study assistant. It lets AI assistants ingest documents and ask grounded
// study questions.
package mcp

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")

// ErrMissingStudyService is returned when the study service is not provided.
var ErrMissingStudyService = errors.New("mcp: study service is required")
