package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	errors := []error{
		ErrMissingDocumentService,
		ErrMissingStudyService,
		ErrInvalidPorts,
	}

	seen := make(map[string]bool)
	for _, err := range errors {
		msg := err.Error()
		assert.False(t, seen[msg], "duplicate error message: %s", msg)
		seen[msg] = true
	}
}

func TestPorts_Validate(t *testing.T) {
	var nilPorts *Ports
	assert.ErrorIs(t, nilPorts.Validate(), ErrInvalidPorts)
	assert.ErrorIs(t, (&Ports{Study: &mockStudy{}}).Validate(), ErrMissingDocumentService)
	assert.ErrorIs(t, (&Ports{Documents: &mockDocuments{}}).Validate(), ErrMissingStudyService)
	assert.NoError(t, newTestPorts().Validate())
}
