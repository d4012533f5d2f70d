package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs background maintenance while a server is up.
// It is a pure core service with no external control API.
type Scheduler struct {
	config    domain.SchedulerConfig
	documents driving.DocumentService
	tick      time.Duration
	now       func() time.Time

	mu      sync.Mutex
	tasks   map[string]*domain.ScheduledTask
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(config domain.SchedulerConfig, documents driving.DocumentService) *Scheduler {
	return &Scheduler{
		config:    config,
		documents: documents,
		tick:      time.Minute,
		now:       time.Now,
		tasks:     make(map[string]*domain.ScheduledTask),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || !s.config.Enabled {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.initialiseTasks()
	s.mu.Unlock()

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler, waiting for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns a snapshot of the scheduled tasks sorted by ID.
func (s *Scheduler) Tasks() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// initialiseTasks registers enabled tasks. Callers hold s.mu.
func (s *Scheduler) initialiseTasks() {
	if cfg := s.config.GetTaskConfig(domain.TaskIDDocumentPrune); cfg.Active() {
		if _, ok := s.tasks[domain.TaskIDDocumentPrune]; !ok {
			s.tasks[domain.TaskIDDocumentPrune] = &domain.ScheduledTask{
				ID:       domain.TaskIDDocumentPrune,
				Name:     "Document Prune",
				Interval: cfg.Interval,
			}
		}
	}
}

// run is the main scheduler loop. Tasks with a zero NextRun are due
// immediately, so an interrupted ingest is cleaned up on startup.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks starts every task whose NextRun has passed.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, task := range s.tasks {
		if !task.Due(now) {
			continue
		}
		// Pushing NextRun forward before the run keeps a slow task from
		// being started twice.
		task.NextRun = now.Add(task.Interval)
		s.runTask(ctx, task.ID)
	}
}

// runTask executes a single task in the background. Callers hold s.mu.
func (s *Scheduler) runTask(ctx context.Context, id string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		started := s.now()
		var (
			items int
			err   error
		)
		switch id {
		case domain.TaskIDDocumentPrune:
			items, err = s.runDocumentPrune(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", id)
			return
		}
		ended := s.now()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.tasks[id].Finish(started, ended, items, err)
		if err != nil {
			logger.Warn("scheduler: task %s failed: %v", id, err)
		}
	}()
}

func (s *Scheduler) runDocumentPrune(ctx context.Context) (int, error) {
	if s.documents == nil {
		return 0, nil
	}
	removed, err := s.documents.Prune(ctx)
	if len(removed) > 0 {
		logger.Info("scheduler: pruned %d incomplete document(s)", len(removed))
	}
	return len(removed), err
}
