package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage conversation sessions",
	Long: `Sessions hold explain-mode conversation history. They live in memory,
so they are only useful against a long-running 'serve' or 'mcp serve'
process, or within a single 'study' run.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsGetCmd = &cobra.Command{
	Use:   "get [session-id]",
	Short: "Show a session's history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsGet,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "Clear a session's history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsClear,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsGetCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errSessionServiceMissing
	}

	sessions := sessionService.List()
	if len(sessions) == 0 {
		cmd.Println("No active sessions.")
		return nil
	}
	for _, s := range sessions {
		cmd.Printf("  %s  %d messages  last active %s\n", s.ID, len(s.Messages), s.LastActivity.Format(timeLayout))
	}
	return nil
}

func runSessionsGet(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return errSessionServiceMissing
	}

	s, err := sessionService.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	cmd.Printf("Session: %s\n", s.ID)
	cmd.Printf("  Created:   %s\n", s.CreatedAt.Format(timeLayout))
	cmd.Printf("  Documents: %v\n\n", s.DocIDs)
	for _, m := range s.Messages {
		cmd.Printf("[%s] %s\n\n", m.Role, m.Content)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return errSessionServiceMissing
	}
	if err := sessionService.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	cmd.Printf("Deleted session: %s\n", args[0])
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return errSessionServiceMissing
	}
	if err := sessionService.Clear(args[0]); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	cmd.Printf("Cleared session: %s\n", args[0])
	return nil
}
