package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

func TestAskCmd_Explain(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "doc-1", "-i", "what is photosynthesis?", "-s", "sess-1")
	require.NoError(t, err)

	assert.Equal(t, domain.AskRequest{
		DocID:     "doc-1",
		Mode:      domain.ModeExplain,
		Input:     "what is photosynthesis?",
		SessionID: "sess-1",
	}, ts.study.last)
	assert.Contains(t, out, "Photosynthesis turns light into chemical energy.")
	assert.Contains(t, out, "[1] chars 0-120 (score 0.870): Light reactions")
	assert.Contains(t, out, "Session: sess-1")
}

func TestAskCmd_ModeIsCaseInsensitive(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask", "doc-1", "--mode", "SUMMARIZE", "-k", "8")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSummarize, ts.study.last.Mode)
	assert.Equal(t, 8, ts.study.last.TopK)
}

func TestAskCmd_Flashcards(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.study.answer = &domain.Answer{
		Mode: domain.ModeFlashcards,
		Flashcards: []domain.Flashcard{
			{Front: "Where does the Calvin cycle happen?", Back: "Stroma", Mnemonic: "Calvin strolls the stroma"},
		},
		Warning: "only 1 of 3 flashcards were generated",
	}

	out, err := execute(t, "ask", "doc-1", "-m", "flashcards", "-n", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, ts.study.last.NumItems)
	assert.Contains(t, out, "1. Where does the Calvin cycle happen?")
	assert.Contains(t, out, "-> Stroma")
	assert.Contains(t, out, "Mnemonic: Calvin strolls the stroma")
	assert.Contains(t, out, "Warning: only 1 of 3")
}

func TestAskCmd_MCQMarksCorrectOption(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.study.answer = &domain.Answer{
		Mode: domain.ModeMCQ,
		Questions: []domain.MCQuestion{{
			Question: "Which pigment absorbs light?",
			Options: []domain.MCQOption{
				{Label: "A", Text: "Keratin"},
				{Label: "B", Text: "Chlorophyll", IsCorrect: true},
				{Label: "C", Text: "Melanin"},
				{Label: "D", Text: "Insulin"},
			},
			CorrectIndex: 1,
		}},
	}

	out, err := execute(t, "ask", "doc-1", "-m", "mcq")
	require.NoError(t, err)
	assert.Contains(t, out, "* B) Chlorophyll")
	assert.Contains(t, out, "  A) Keratin")
}

func TestAskCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "doc-1", "-i", "q", "--json")
	require.NoError(t, err)

	var answer domain.Answer
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &answer))
	assert.Equal(t, "sess-1", answer.SessionID)
	assert.Len(t, answer.Citations, 1)
}

func TestAskCmd_Errors(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")

	ts.study.err = domain.ErrInvalidMode
	_, err = execute(t, "ask", "doc-1", "-i", "q")
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
}

func TestModesCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "modes")
	require.NoError(t, err)
	for _, m := range domain.AllModes() {
		assert.Contains(t, out, m.Description())
	}
}

func TestStudyCmds_ServiceNotConfigured(t *testing.T) {
	defer clearServices()()

	_, err := execute(t, "ask", "doc-1")
	assert.ErrorIs(t, err, errStudyServiceMissing)
	_, err = execute(t, "modes")
	assert.ErrorIs(t, err, errStudyServiceMissing)
}
