package mcp

import (
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Documents manages the ingest lifecycle.
	Documents driving.DocumentService

	// Study answers grounded study requests.
	Study driving.StudyService

	// MaxUploadBytes caps files read by ingest_file. Zero means no cap
	// beyond the document service's own.
	MaxUploadBytes int64
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	if p.Study == nil {
		return ErrMissingStudyService
	}
	return nil
}
