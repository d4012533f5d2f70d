package domain

import "time"

// TaskIDDocumentPrune removes documents left incomplete by an interrupted
// ingest, together with index artifacts that have no metadata.
const TaskIDDocumentPrune = "document-prune"

// DefaultPruneInterval is how often `serve` prunes after the startup run.
const DefaultPruneInterval = time.Hour

// ScheduledTask is the run state of one background task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration

	// NextRun is zero until the first run, so a new task is due at once.
	NextRun time.Time

	LastRun     time.Time
	LastSuccess time.Time
	LastError   string

	// ItemsProcessed counts what the last run touched, e.g. documents pruned.
	ItemsProcessed int
}

// Due reports whether the task should start at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return !t.NextRun.After(now)
}

// Finish records the outcome of a run that started at started and ended at
// ended, and schedules the next one.
func (t *ScheduledTask) Finish(started, ended time.Time, items int, err error) {
	t.LastRun = started
	t.NextRun = ended.Add(t.Interval)
	t.ItemsProcessed = items
	if err != nil {
		t.LastError = err.Error()
		return
	}
	t.LastError = ""
	t.LastSuccess = ended
}

// SchedulerConfig switches the scheduler and its tasks on or off.
type SchedulerConfig struct {
	Enabled     bool
	TaskConfigs map[string]TaskConfig
}

// TaskConfig configures one task. A task with a zero interval never runs.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Active reports whether the task should be registered.
func (c TaskConfig) Active() bool {
	return c.Enabled && c.Interval > 0
}

// GetTaskConfig returns the task's configuration, or the zero value when
// the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns the configuration used by `serve`.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDDocumentPrune: {Enabled: true, Interval: DefaultPruneInterval},
		},
	}
}
