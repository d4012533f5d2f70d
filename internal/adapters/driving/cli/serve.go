package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-study/internal/adapters/driving/api"
	"github.com/custodia-labs/sercha-study/internal/core/services"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// Default serve address. When --port is not given the first free port in
// [defaultPort, defaultPort+portSearchRange] is used.
const (
	defaultHost     = "127.0.0.1"
	defaultPort     = 8420
	portSearchRange = 20
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the study API over HTTP.

Routes:
  GET    /health                     liveness
  GET    /ready                      pings the embedding and LLM providers
  POST   /rag/ingest                 multipart upload (field "file")
  POST   /rag/ask                    study request
  GET    /rag/documents              list documents
  GET    /rag/documents/{id}         document with index manifest
  DELETE /rag/documents/{id}         delete document
  POST   /rag/documents/{id}/reindex re-embed under the active provider
  GET    /agent/modes                study modes
  GET    /agent/sessions             list sessions
  GET    /agent/sessions/{id}        session history
  DELETE /agent/sessions/{id}        delete session
  POST   /agent/sessions/{id}/clear  clear session history
  *      /mcp                        MCP over streamable HTTP

Incomplete documents are pruned at startup and then on the scheduler's
interval.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", defaultHost, "Address to bind")
	serveCmd.Flags().IntP("port", "p", defaultPort, "Port to listen on")
	serveCmd.Flags().Bool("no-mcp", false, "Do not mount the MCP handler at /mcp")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentServiceMissing
	}
	if studyService == nil {
		return errStudyServiceMissing
	}

	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	noMCP, _ := cmd.Flags().GetBool("no-mcp")

	if !cmd.Flags().Changed("port") {
		found, err := services.FindAvailablePort(host, defaultPort, defaultPort+portSearchRange)
		if err != nil {
			return err
		}
		port = found
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	cfg := api.Config{
		ListenAddr:     addr,
		MaxUploadBytes: runtimeConfig.MaxUploadBytes,
	}
	if !noMCP {
		mcpServer, err := newMCPServer()
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		cfg.MCP = mcpServer.Handler()
	}

	svcs := api.Services{
		Documents: documentService,
		Study:     studyService,
		Sessions:  sessionService,
	}
	if settingsService != nil {
		svcs.Readiness = settingsService
	}

	log := logger.L().Named("serve")
	server, err := api.NewServer(cfg, svcs, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopScheduler := startScheduler(ctx, log)
	defer stopScheduler()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", listener.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.RunWithListener(listener)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// startScheduler runs the background scheduler until ctx is done and
// returns a function that stops it.
func startScheduler(ctx context.Context, log *zap.Logger) func() {
	if scheduler == nil || !schedulerConfig.Enabled {
		return func() {}
	}

	schedCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := scheduler.Start(schedCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("scheduler stopped", zap.Error(err))
		}
	}()

	return func() {
		cancel()
		if err := scheduler.Stop(); err != nil {
			log.Warn("scheduler stop", zap.Error(err))
		}
		for _, t := range scheduler.Tasks() {
			log.Debug("scheduler task",
				zap.String("task", t.ID),
				zap.Time("last_run", t.LastRun),
				zap.Int("items", t.ItemsProcessed),
				zap.String("last_error", t.LastError))
		}
	}
}
