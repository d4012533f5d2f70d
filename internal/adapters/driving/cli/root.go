// Package cli implements the sercha-study command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// version is set by SetVersion from build flags.
var version = "dev"

// Services injected by main. Commands check for nil before use.
var (
	documentService driving.DocumentService
	studyService    driving.StudyService
	sessionService  driving.SessionService
	settingsService driving.SettingsService
	scheduler       driving.Scheduler
	schedulerConfig domain.SchedulerConfig
	runtimeConfig   = domain.DefaultRuntimeConfig(".")
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sercha-study",
	Short: "Study any document with retrieval-augmented generation",
	Long: `sercha-study ingests a document, indexes it locally and answers study
requests against it: explanations, summaries, flashcards and
multiple-choice quizzes, each grounded in cited passages.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Services groups the dependencies the commands run against.
type Services struct {
	Documents       driving.DocumentService
	Study           driving.StudyService
	Sessions        driving.SessionService
	Settings        driving.SettingsService
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig
	Runtime         domain.RuntimeConfig
}

// SetServices installs the services used by every command.
func SetServices(s Services) {
	documentService = s.Documents
	studyService = s.Study
	sessionService = s.Sessions
	settingsService = s.Settings
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
	runtimeConfig = s.Runtime
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx. Cobra only hands the root
// context to a subcommand whose own context is unset, so contexts left
// from an earlier run are cleared first.
func ExecuteContext(ctx context.Context) error {
	clearContexts(rootCmd)
	return rootCmd.ExecuteContext(ctx)
}

// VerboseRequested reports whether args carry the verbose flag. It lets
// startup wiring log before cobra has parsed the command line.
func VerboseRequested(args []string) bool {
	for _, a := range args {
		switch a {
		case "--":
			return false
		case "-v", "--verbose", "--verbose=true":
			return true
		}
	}
	return false
}

func clearContexts(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		sub.SetContext(nil) //nolint:staticcheck // nil lets cobra inherit the root context
		clearContexts(sub)
	}
}

var (
	errDocumentServiceMissing = errors.New("document service not configured")
	errStudyServiceMissing    = errors.New("study service not configured")
	errSessionServiceMissing  = errors.New("session service not configured")
	errSettingsServiceMissing = errors.New("settings service not configured")
)
