package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/tui"
)

var errNotTerminal = errors.New("study needs an interactive terminal; use 'ask' instead")

var studyCmd = &cobra.Command{
	Use:   "study [doc-id]",
	Short: "Launch the interactive study UI",
	Long: `Launch the interactive terminal UI.

Pick a document, then choose a mode: ask for explanations, read a
summary, drill flashcards or take a multiple-choice quiz. Pass a
document ID to skip the picker.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Select / Ask
  Space    - Flip a flashcard
  ←/h, →/l - Previous / next card or question
  g        - Generate a new set
  Esc      - Back
  ?        - Help
  q        - Quit`,
	Aliases: []string{"tui"},
	Args:    cobra.MaximumNArgs(1),
	RunE:    runStudy,
}

func init() {
	rootCmd.AddCommand(studyCmd)
}

func runStudy(cmd *cobra.Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if documentService == nil {
		return errDocumentServiceMissing
	}
	if studyService == nil {
		return errStudyServiceMissing
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errNotTerminal
	}

	app, err := tui.NewApp(&tui.Ports{
		Documents: documentService,
		Study:     studyService,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if len(args) == 1 {
		details, err := documentService.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		app.SelectDocument(details.Document)
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
