package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [doc-id]",
	Short: "Ask a study question about a document",
	Long: `Retrieve the most relevant passages of a document and answer in one of
the study modes:

  explain     - answer a question, grounded in the passages
  summarize   - summarise the document, optionally focused on --input
  flashcards  - generate --num-items flashcards
  mcq         - generate --num-items multiple-choice questions

Use --session to keep a conversation going in explain mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the supported study modes",
	Args:  cobra.NoArgs,
	RunE:  runModes,
}

var (
	askMode     string
	askInput    string
	askNumItems int
	askTopK     int
	askSession  string
	askJSON     bool
)

func init() {
	askCmd.Flags().StringVarP(&askMode, "mode", "m", string(domain.ModeExplain), "Study mode (explain, summarize, flashcards, mcq)")
	askCmd.Flags().StringVarP(&askInput, "input", "i", "", "Question, or focus topic for the other modes")
	askCmd.Flags().IntVarP(&askNumItems, "num-items", "n", 0, "Number of flashcards or questions (1-20, default 5)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Number of passages to retrieve (default from settings)")
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Session ID for follow-up questions")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the raw answer as JSON")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(modesCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if studyService == nil {
		return errStudyServiceMissing
	}

	answer, err := studyService.Ask(cmd.Context(), domain.AskRequest{
		DocID:     args[0],
		Mode:      domain.Mode(strings.ToLower(askMode)),
		Input:     askInput,
		NumItems:  askNumItems,
		TopK:      askTopK,
		SessionID: askSession,
	})
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	switch answer.Mode {
	case domain.ModeFlashcards:
		for i, card := range answer.Flashcards {
			cmd.Printf("%d. %s\n", i+1, card.Front)
			cmd.Printf("   -> %s\n", card.Back)
			if card.Mnemonic != "" {
				cmd.Printf("   Mnemonic: %s\n", card.Mnemonic)
			}
			cmd.Println()
		}
	case domain.ModeMCQ:
		for i, q := range answer.Questions {
			cmd.Printf("%d. %s\n", i+1, q.Question)
			for j, opt := range q.Options {
				marker := " "
				if j == q.CorrectIndex {
					marker = "*"
				}
				cmd.Printf("  %s %s) %s\n", marker, opt.Label, opt.Text)
			}
			cmd.Println()
		}
	default:
		cmd.Println(answer.Content)
		cmd.Println()
	}

	if len(answer.Citations) > 0 {
		cmd.Println("Sources:")
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] chars %d-%d (score %.3f): %s\n", i+1, c.StartOffset, c.EndOffset, c.Score, c.Snippet)
		}
	}
	if answer.Warning != "" {
		cmd.Printf("\nWarning: %s\n", answer.Warning)
	}
	if answer.SessionID != "" {
		cmd.Printf("\nSession: %s\n", answer.SessionID)
	}
}

func runModes(cmd *cobra.Command, _ []string) error {
	if studyService == nil {
		return errStudyServiceMissing
	}

	for _, m := range studyService.Modes() {
		cmd.Printf("  %-12s %s\n", m, m.Description())
	}
	return nil
}
