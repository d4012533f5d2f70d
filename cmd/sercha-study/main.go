// Command sercha-study ingests documents and answers study requests
// against them with retrieval-augmented generation.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-study/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/config/env"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/sercha-study/internal/adapters/driven/vector/sqlitevec"
	"github.com/custodia-labs/sercha-study/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/core/services"
	"github.com/custodia-labs/sercha-study/internal/logger"
	"github.com/custodia-labs/sercha-study/internal/normalisers"
	"github.com/custodia-labs/sercha-study/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// homeEnv overrides the config directory.
const homeEnv = "SERCHA_STUDY_HOME"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	logger.SetVerbose(cli.VerboseRequested(os.Args[1:]))

	configDir := os.Getenv(homeEnv)
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return fmt.Errorf("resolving config dir: %w", err)
		}
		configDir = dir
	}

	fileStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	configStore, err := env.New(fileStore, ".env", filepath.Join(configDir, ".env"))
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(), filepath.Join(configDir, "data"))
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	runtime, err := settingsService.Runtime()
	if err != nil {
		// Settings commands must still run so the user can fix the file.
		logger.Warn("invalid configuration, using defaults: %v", err)
		runtime = domain.DefaultRuntimeConfig(filepath.Join(configDir, "data"))
	}
	settings.Runtime = runtime

	aiServices := ai.Connect(ctx, *settings)
	defer aiServices.Close()

	index, err := newVectorIndex(runtime)
	if err != nil {
		return err
	}
	defer index.Close()

	store, err := sqlite.NewStore(filepath.Join(runtime.StorageRoot, sqlite.MetadataDir))
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	sessions, err := memory.NewSessionStore(runtime.MaxSessions, runtime.MaxMessagesPerSession)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return fmt.Errorf("opening prompts: %w", err)
	}

	chunker, err := postprocessors.NewChunker(runtime)
	if err != nil {
		return fmt.Errorf("creating chunker: %w", err)
	}

	locks := services.NewDocLocks()
	documentService := services.NewDocumentService(
		normalisers.Default(), chunker, aiServices.EmbeddingService,
		index, store, locks, runtime.MaxUploadBytes,
	)
	retrievalService := services.NewRetrievalService(aiServices.EmbeddingService, index, store, locks)
	studyService := services.NewStudyService(retrievalService, aiServices.LLMService, prompts, sessions, runtime)
	sessionService := services.NewSessionService(sessions)

	schedulerConfig := domain.DefaultSchedulerConfig()
	scheduler := services.NewScheduler(schedulerConfig, documentService)

	logger.L().Debug("services ready",
		zap.String("config_dir", configDir),
		zap.String("storage_root", runtime.StorageRoot),
		zap.String("vector_backend", string(runtime.VectorBackend)),
	)

	cli.SetServices(cli.Services{
		Documents:       documentService,
		Study:           studyService,
		Sessions:        sessionService,
		Settings:        settingsService,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		Runtime:         runtime,
	})
	cli.SetVersion(version)

	return cli.Execute()
}

// newVectorIndex opens the index backend selected in the runtime config.
func newVectorIndex(runtime domain.RuntimeConfig) (driven.VectorIndex, error) {
	dir := filepath.Join(runtime.StorageRoot, vector.IndicesDir)

	switch runtime.VectorBackend {
	case domain.VectorBackendSQLiteVec:
		if !sqlitevec.Available {
			return nil, fmt.Errorf("vector backend %q needs a cgo build", runtime.VectorBackend)
		}
		idx, err := sqlitevec.New(sqlitevec.Config{Dir: dir, MaxOpen: runtime.MaxCachedIndices}, logger.L())
		if err != nil {
			return nil, fmt.Errorf("opening sqlite-vec index: %w", err)
		}
		return idx, nil
	default:
		idx, err := flat.New(flat.Config{Dir: dir, MaxCached: runtime.MaxCachedIndices})
		if err != nil {
			return nil, fmt.Errorf("opening vector index: %w", err)
		}
		return idx, nil
	}
}
