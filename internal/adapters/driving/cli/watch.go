package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/watch"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest files dropped into a folder",
	Long: `Watch a folder and keep its documents indexed.

New files are ingested once writes settle. A modified file is ingested
again and its previous document deleted. Removing or renaming a file
deletes its document. Hidden files and subdirectories are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before a changed file is ingested")
	watchCmd.Flags().Bool("initial", false, "Ingest files already in the folder")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceMissing
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	initial, _ := cmd.Flags().GetBool("initial")

	w, err := watch.New(watch.Config{
		Dir:      args[0],
		Debounce: debounce,
		MaxBytes: runtimeConfig.MaxUploadBytes,
		Initial:  initial,
	}, documentService, logger.L())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", args[0])
	for {
		select {
		case err := <-done:
			return err
		case ev := <-w.Events():
			printWatchEvent(cmd, ev)
		}
	}
}

func printWatchEvent(cmd *cobra.Command, ev watch.Event) {
	switch {
	case ev.Err != nil:
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s: %v\n", ev.Path, ev.Err)
	case ev.Removed:
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", ev.Path, ev.DocID)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s (%s)\n", ev.Path, ev.DocID)
	}
}
