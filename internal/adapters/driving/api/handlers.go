package api

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// DocumentResponse describes one document.
type DocumentResponse struct {
	DocID      string    `json:"doc_id"`
	Title      string    `json:"title"`
	SourcePath string    `json:"source_path,omitempty"`
	MIMEType   string    `json:"mime_type,omitempty"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ManifestResponse describes a document's vector index.
type ManifestResponse struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Metric     string    `json:"metric"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentDetailsResponse is a document with its index manifest.
type DocumentDetailsResponse struct {
	DocumentResponse
	Index      *ManifestResponse `json:"index,omitempty"`
	Compatible bool              `json:"compatible"`
}

// ModeResponse describes one study mode.
type ModeResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Structured  bool   `json:"structured"`
}

// ReadyResponse reports provider reachability.
type ReadyResponse struct {
	Status    string `json:"status"`
	Embedding string `json:"embedding"`
	LLM       string `json:"llm"`
}

func documentResponse(doc *domain.Document) DocumentResponse {
	return DocumentResponse{
		DocID:      doc.ID,
		Title:      doc.Title,
		SourcePath: doc.SourcePath,
		MIMEType:   doc.MIMEType,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		CreatedAt:  doc.CreatedAt,
	}
}

func detailsResponse(d *driving.DocumentDetails) DocumentDetailsResponse {
	resp := DocumentDetailsResponse{
		DocumentResponse: documentResponse(&d.Document),
		Compatible:       d.Compatible,
	}
	if m := d.Manifest; m != nil {
		resp.Index = &ManifestResponse{
			Provider:   m.Provider.String(),
			Model:      m.Model,
			Dimensions: m.Dimensions,
			Metric:     m.Metric,
			ChunkCount: m.ChunkCount,
			CreatedAt:  m.CreatedAt,
		}
	}
	return resp
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleReady pings both providers. Either failing yields 503.
func (s *Server) handleReady(c *fiber.Ctx) error {
	resp := ReadyResponse{Status: "ready", Embedding: "ok", LLM: "ok"}
	if s.services.Readiness == nil {
		return c.JSON(resp)
	}
	if err := s.services.Readiness.ValidateEmbeddingConfig(); err != nil {
		resp.Status, resp.Embedding = "not_ready", err.Error()
	}
	if err := s.services.Readiness.ValidateLLMConfig(); err != nil {
		resp.Status, resp.LLM = "not_ready", err.Error()
	}
	if resp.Status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

// handleIngest handles POST /rag/ingest with a multipart "file" field.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrInvalidInput)
	}
	if header.Size > s.config.MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrFileTooLarge, header.Size, s.config.MaxUploadBytes)
	}

	f, err := header.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.config.MaxUploadBytes+1))
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}

	doc, err := s.services.Documents.Ingest(c.UserContext(), content, filepath.Base(header.Filename))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(documentResponse(doc))
}

// handleAsk handles POST /rag/ask with a JSON AskRequest body.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req domain.AskRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", domain.ErrInvalidInput, err)
	}

	answer, err := s.services.Study.Ask(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(answer)
}

func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	docs, err := s.services.Documents.List(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]DocumentResponse, len(docs))
	for i := range docs {
		resp[i] = documentResponse(&docs[i])
	}
	return c.JSON(fiber.Map{"documents": resp, "count": len(resp)})
}

func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	details, err := s.services.Documents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(detailsResponse(details))
}

func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	if err := s.services.Documents.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleReindexDocument(c *fiber.Ctx) error {
	details, err := s.services.Documents.Reindex(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(detailsResponse(details))
}

func (s *Server) handleModes(c *fiber.Ctx) error {
	modes := s.services.Study.Modes()
	resp := make([]ModeResponse, len(modes))
	for i, m := range modes {
		resp[i] = ModeResponse{Name: m.String(), Description: m.Description(), Structured: m.IsStructured()}
	}
	return c.JSON(fiber.Map{"modes": resp})
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	if s.services.Sessions == nil {
		return c.JSON(fiber.Map{"sessions": []domain.Session{}, "count": 0})
	}
	sessions := s.services.Sessions.List()
	return c.JSON(fiber.Map{"sessions": sessions, "count": len(sessions)})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	if s.services.Sessions == nil {
		return domain.ErrNotFound
	}
	sess, err := s.services.Sessions.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(sess)
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if s.services.Sessions == nil {
		return domain.ErrNotFound
	}
	if err := s.services.Sessions.Delete(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleClearSession(c *fiber.Ctx) error {
	if s.services.Sessions == nil {
		return domain.ErrNotFound
	}
	if err := s.services.Sessions.Clear(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"session_id": c.Params("id"), "cleared": true})
}
