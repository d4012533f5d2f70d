// Package api serves the study assistant over HTTP using fiber.
package api

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// multipartOverhead is the body allowance above MaxUploadBytes for
// multipart framing.
const multipartOverhead = 1 << 20

// Config holds API server settings.
type Config struct {
	// ListenAddr is the host:port to listen on.
	ListenAddr string

	// MaxUploadBytes caps ingested files.
	MaxUploadBytes int64

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// ReadinessChecker pings the configured AI providers.
type ReadinessChecker interface {
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}

// Services are the driving ports the API exposes.
type Services struct {
	Documents driving.DocumentService
	Study     driving.StudyService
	Sessions  driving.SessionService
	Readiness ReadinessChecker
}

// Server is the HTTP API server.
type Server struct {
	config   Config
	services Services
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server and registers its routes.
func NewServer(config Config, services Services, logger *zap.Logger) (*Server, error) {
	if services.Documents == nil || services.Study == nil {
		return nil, errors.New("api: document and study services are required")
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = domain.DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:   config,
		services: services,
		logger:   logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             int(config.MaxUploadBytes) + multipartOverhead,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(s.logRequests)

	app.Get("/health", s.handleHealth)
	app.Get("/ready", s.handleReady)

	rag := app.Group("/rag")
	rag.Post("/ingest", s.handleIngest)
	rag.Post("/ask", s.handleAsk)
	rag.Get("/documents", s.handleListDocuments)
	rag.Get("/documents/:id", s.handleGetDocument)
	rag.Delete("/documents/:id", s.handleDeleteDocument)
	rag.Post("/documents/:id/reindex", s.handleReindexDocument)

	agent := app.Group("/agent")
	agent.Get("/modes", s.handleModes)
	agent.Get("/sessions", s.handleListSessions)
	agent.Get("/sessions/:id", s.handleGetSession)
	agent.Delete("/sessions/:id", s.handleDeleteSession)
	agent.Post("/sessions/:id/clear", s.handleClearSession)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	s.app = app
	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
		zap.Bool("mcp", s.config.MCP != nil),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server", zap.String("listen", listener.Addr().String()))
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// logRequests logs one line per request at debug level, or warn for 5xx.
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Resolve the status now so the log line matches the response.
		if herr := s.handleError(c, err); herr != nil {
			return herr
		}
		err = nil
	}

	status := c.Response().StatusCode()
	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed", fields...)
	} else {
		s.logger.Debug("request", fields...)
	}
	return err
}
