package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionFull bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("sercha-study %s\n", version)
		if !versionFull {
			return
		}
		cmd.Printf("  go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		cmd.Printf("  vector:     %s\n", runtimeConfig.VectorBackend)
		cmd.Printf("  embeddings: %s\n", runtimeConfig.EmbeddingProvider)
		cmd.Printf("  llm:        %s\n", runtimeConfig.LLMProvider)
		cmd.Printf("  storage:    %s\n", runtimeConfig.StorageRoot)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "Also print build and backend details")
	rootCmd.AddCommand(versionCmd)
}
