// Package tui provides the interactive study terminal UI: pick a document,
// then ask questions, read summaries, drill flashcards or take a quiz.
package tui

import (
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Documents lists and manages ingested documents.
	Documents driving.DocumentService

	// Study answers study requests.
	Study driving.StudyService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	if p.Study == nil {
		return ErrMissingStudyService
	}
	return nil
}
