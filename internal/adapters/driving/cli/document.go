package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

const timeLayout = "2006-01-02 15:04:05"

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest documents for study",
	Long: `Extract, chunk, embed and index one or more files. Each file becomes a
separate document with its own ID. A file that fails leaves nothing behind.

Supported formats: plain text, Markdown, HTML, PDF, DOCX, ODT and RTF.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var documentCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Manage ingested documents",
	Long:    `List, inspect, delete, prune or reindex ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info and index manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove documents left incomplete by an interrupted ingest",
	Args:  cobra.NoArgs,
	RunE:  runDocumentPrune,
}

var documentReindexCmd = &cobra.Command{
	Use:   "reindex [doc-id]",
	Short: "Re-embed a document under the active embedding provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentReindex,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentPruneCmd)
	documentCmd.AddCommand(documentReindexCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceMissing
	}

	var failed int
	for _, path := range args {
		doc, err := ingestFile(cmd, path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}
		cmd.Printf("Ingested %s\n", path)
		cmd.Printf("  ID:     %s\n", doc.ID)
		cmd.Printf("  Chunks: %d\n", doc.ChunkCount)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(args))
	}
	return nil
}

func ingestFile(cmd *cobra.Command, path string) (*domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if limit := runtimeConfig.MaxUploadBytes; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrFileTooLarge, info.Size(), limit)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return documentService.Ingest(cmd.Context(), content, filepath.Base(path))
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentServiceMissing
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:  %s\n", docs[i].Title)
		cmd.Printf("    Status: %s\n", docs[i].Status)
		cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceMissing
	}

	details, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	printDetails(cmd, details)
	return nil
}

func printDetails(cmd *cobra.Command, details *driving.DocumentDetails) {
	doc := details.Document
	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.Title)
	cmd.Printf("  Source:   %s\n", doc.SourcePath)
	cmd.Printf("  Type:     %s\n", doc.MIMEType)
	cmd.Printf("  Status:   %s\n", doc.Status)
	cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format(timeLayout))

	m := details.Manifest
	if m == nil {
		cmd.Println("\n  Index: missing (run 'sercha-study documents prune')")
		return
	}
	cmd.Println("\n  Index:")
	cmd.Printf("    Provider:   %s\n", m.Provider)
	cmd.Printf("    Model:      %s\n", m.Model)
	cmd.Printf("    Dimensions: %d\n", m.Dimensions)
	cmd.Printf("    Metric:     %s\n", m.Metric)
	if !details.Compatible {
		cmd.Println("\n  Warning: built under a different embedding provider.")
		cmd.Printf("  Run 'sercha-study documents reindex %s' before asking questions.\n", doc.ID)
	}
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceMissing
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document: %s\n", args[0])
	return nil
}

func runDocumentPrune(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentServiceMissing
	}

	removed, err := documentService.Prune(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to prune documents: %w", err)
	}

	if len(removed) == 0 {
		cmd.Println("Nothing to prune.")
		return nil
	}
	for _, id := range removed {
		cmd.Printf("  removed %s\n", id)
	}
	cmd.Printf("Pruned %d incomplete documents\n", len(removed))
	return nil
}

func runDocumentReindex(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentServiceMissing
	}

	details, err := documentService.Reindex(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to reindex document: %w", err)
	}

	cmd.Printf("Reindexed %s\n\n", args[0])
	printDetails(cmd, details)
	return nil
}
