package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/services"
)

var errAPIKeyRequired = errors.New("API key is required for this provider")

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change provider and pipeline settings",
	Long: `Without a subcommand, print the current settings.

Providers are configured interactively with 'settings embedding' and
'settings llm' (or both via 'settings wizard'); pipeline values are set one
at a time with 'settings set'.`,
	PersistentPreRunE: requireSettings,
	RunE:              runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Configure the embedding and LLM providers in one pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		for i, role := range []providerRole{embeddingRole(), llmRole()} {
			cmd.Printf("Step %d of 2: %s provider\n\n", i+1, role.name)
			if err := configureProvider(cmd, in, role); err != nil {
				return err
			}
		}
		return reportRuntime(cmd, "All settings are valid and saved.")
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  sercha-study settings set rag.chunk_size 800
  sercha-study settings set llm.temperature 0.2

The resulting configuration is validated before it is written.
Run 'sercha-study settings keys' to list the accepted keys.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := settingsService.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		cmd.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys accepted by 'settings set'",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range services.SettableKeys() {
			cmd.Println(k)
		}
	},
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Choose the embedding provider",
	Long: `Choose the provider and model used to embed document chunks.
Documents indexed under another provider must be reindexed afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), embeddingRole())
	},
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Choose the LLM provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), llmRole())
	},
}

func init() {
	settingsCmd.AddCommand(
		settingsShowCmd,
		settingsWizardCmd,
		settingsSetCmd,
		settingsKeysCmd,
		settingsEmbeddingCmd,
		settingsLLMCmd,
	)
	rootCmd.AddCommand(settingsCmd)
}

func requireSettings(*cobra.Command, []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	printProvider(cmd, "Embedding", settings.Embedding)
	printProvider(cmd, "LLM", settings.LLM)

	rt := settings.Runtime
	printSection(cmd, "Pipeline", [][2]string{
		{"Chunk size", strconv.Itoa(rt.ChunkSize)},
		{"Chunk overlap", strconv.Itoa(rt.ChunkOverlap)},
		{"Top K", strconv.Itoa(rt.TopK)},
		{"Temperature", fmt.Sprintf("%.2f", rt.LLMTemperature)},
		{"Max upload", fmt.Sprintf("%d bytes", rt.MaxUploadBytes)},
	})
	printSection(cmd, "Storage", [][2]string{
		{"Root", rt.StorageRoot},
		{"Vector backend", string(rt.VectorBackend)},
		{"Cached indices", strconv.Itoa(rt.MaxCachedIndices)},
	})
	printSection(cmd, "Sessions", [][2]string{
		{"Max sessions", strconv.Itoa(rt.MaxSessions)},
		{"Max exchanges", strconv.Itoa(rt.MaxMessagesPerSession)},
	})

	return reportRuntime(cmd, "Configuration is valid.")
}

// printSection prints aligned "label:  value" rows under a [title] header.
func printSection(cmd *cobra.Command, title string, rows [][2]string) {
	cmd.Printf("[%s]\n", title)
	for _, r := range rows {
		cmd.Printf("  %-16s %s\n", r[0]+":", r[1])
	}
	cmd.Println()
}

func printProvider(cmd *cobra.Command, title string, p domain.ProviderSettings) {
	cmd.Printf("[%s]\n", title)
	cmd.Printf("  Provider: %s\n", p.Provider.Description())
	cmd.Printf("  Model: %s\n", p.Model)
	if p.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", p.BaseURL)
	}
	if p.Provider.RequiresAPIKey() {
		key := "(not set)"
		if p.APIKey != "" {
			key = maskAPIKey(p.APIKey)
		}
		cmd.Printf("  API Key: %s\n", key)
	}
	state := "configured"
	if !p.IsConfigured() {
		state = "not configured"
	}
	cmd.Printf("  Status: %s\n\n", state)
}

// reportRuntime prints ok when the runtime config validates, or the
// validation error as a warning. It never fails the command.
func reportRuntime(cmd *cobra.Command, ok string) error {
	if _, err := settingsService.Runtime(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-study settings set' to fix configuration issues.")
		return nil
	}
	cmd.Println(ok)
	return nil
}

// providerRole is what differs between configuring embeddings and the LLM.
type providerRole struct {
	name      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	apply     func(domain.AIProvider, string, string) error
	validate  func() error
}

func embeddingRole() providerRole {
	return providerRole{
		name:      "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		apply:     settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	}
}

func llmRole() providerRole {
	return providerRole{
		name:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		apply:     settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	}
}

// configureProvider prompts for provider, model and key, saves them, then
// pings the provider. The settings stay saved when the ping fails.
func configureProvider(cmd *cobra.Command, in *bufio.Reader, role providerRole) error {
	cmd.Printf("Select %s provider\n", role.name)
	for i, p := range role.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := role.providers[parseChoice(readLine(in), len(role.providers), 1)-1]

	model := role.models[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if m := readLine(in); m != "" {
		model = m
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd, in)
		cmd.Println()
		if apiKey == "" {
			return errAPIKeyRequired
		}
	}

	if err := role.apply(provider, model, apiKey); err != nil {
		return fmt.Errorf("save %s provider: %w", strings.ToLower(role.name), err)
	}

	cmd.Print("Validating configuration... ")
	if err := role.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s provider check: %w", strings.ToLower(role.name), err)
	}
	cmd.Println("OK")
	cmd.Printf("%s provider configured: %s (%s)\n\n", role.name, provider.Description(), model)
	return nil
}

func readLine(in *bufio.Reader) string {
	line, _ := in.ReadString('\n') //nolint:errcheck // EOF yields the default
	return strings.TrimSpace(line)
}

// parseChoice returns the 1-based choice, or def when input is empty or
// out of range.
func parseChoice(input string, n, def int) int {
	v, err := strconv.Atoi(input)
	if err != nil || v < 1 || v > n {
		return def
	}
	return v
}

// readPassword reads without echo when stdin is the real terminal.
func readPassword(cmd *cobra.Command, in *bufio.Reader) string {
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		if b, err := term.ReadPassword(int(os.Stdin.Fd())); err == nil {
			return string(b)
		}
	}
	return readLine(in)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
