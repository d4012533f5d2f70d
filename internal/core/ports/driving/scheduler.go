package driving

import (
	"context"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

// Scheduler runs maintenance tasks, such as pruning documents left pending
// by an interrupted ingest, for as long as `serve` is up.
type Scheduler interface {
	// Start runs due tasks immediately, then on their intervals.
	// Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for in-flight tasks and returns.
	Stop() error

	// Tasks returns a snapshot of task state sorted by ID.
	Tasks() []domain.ScheduledTask
}
