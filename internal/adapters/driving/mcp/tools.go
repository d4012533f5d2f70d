package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// IngestFileInput is the input schema for the ingest_file tool.
type IngestFileInput struct {
	Path string `json:"path" jsonschema:"absolute path of the file to ingest (pdf, docx, txt, md, html)"`
}

// DocumentOutput describes one document.
type DocumentOutput struct {
	DocID      string `json:"doc_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	MIMEType   string `json:"mime_type,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	DocID     string `json:"doc_id" jsonschema:"the document to study"`
	Mode      string `json:"mode" jsonschema:"one of explain, summarize, flashcards, mcq"`
	Input     string `json:"input,omitempty" jsonschema:"the question for explain, or an optional topic"`
	NumItems  int    `json:"num_items,omitempty" jsonschema:"number of flashcards or questions (1-20, default 5)"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session for follow-up questions"`
}

// ListDocumentsInput is the (empty) input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DeleteDocumentInput is the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	DocID string `json:"doc_id" jsonschema:"the document to delete"`
}

// DeleteDocumentOutput is the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	DocID   string `json:"doc_id"`
	Deleted bool   `json:"deleted"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_file",
		Description: "Ingest a local file so it can be studied",
	}, s.handleIngestFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Explain, summarise, or generate flashcards or multiple-choice questions from a document",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List ingested documents",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and its index",
	}, s.handleDeleteDocument)
}

func (s *Server) handleIngestFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestFileInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if input.Path == "" {
		return nil, DocumentOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	info, err := os.Stat(input.Path)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}
	if info.IsDir() {
		return nil, DocumentOutput{}, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, input.Path)
	}
	if limit := s.ports.MaxUploadBytes; limit > 0 && info.Size() > limit {
		return nil, DocumentOutput{}, fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrFileTooLarge, info.Size(), limit)
	}

	content, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}

	doc, err := s.ports.Documents.Ingest(ctx, content, filepath.Base(input.Path))
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, documentOutput(doc), nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, domain.Answer, error) {
	answer, err := s.ports.Study.Ask(ctx, domain.AskRequest{
		DocID:     input.DocID,
		Mode:      domain.Mode(input.Mode),
		Input:     input.Input,
		NumItems:  input.NumItems,
		SessionID: input.SessionID,
	})
	if err != nil {
		return nil, domain.Answer{}, err
	}
	return nil, *answer, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = documentOutput(&docs[i])
	}
	return nil, output, nil
}

func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	if input.DocID == "" {
		return nil, DeleteDocumentOutput{}, fmt.Errorf("%w: doc_id is required", domain.ErrInvalidInput)
	}
	if err := s.ports.Documents.Delete(ctx, input.DocID); err != nil {
		return nil, DeleteDocumentOutput{}, err
	}
	return nil, DeleteDocumentOutput{DocID: input.DocID, Deleted: true}, nil
}

func documentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		DocID:      doc.ID,
		Title:      doc.Title,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		MIMEType:   doc.MIMEType,
	}
}
