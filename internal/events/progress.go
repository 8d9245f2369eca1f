package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/scry-decks/internal/store"
)

// ProgressReporter publishes store commit progress as TypeCommitProgress
// events. Emission failures are logged and do not affect the commit.
type ProgressReporter struct {
	emitter EventEmitter
	logger  *slog.Logger
}

// Verify interface compliance at compile time
var _ store.Progress = (*ProgressReporter)(nil)

// NewProgressReporter creates a reporter that publishes through emitter.
func NewProgressReporter(emitter EventEmitter, logger *slog.Logger) *ProgressReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressReporter{
		emitter: emitter,
		logger:  logger.With(slog.String("component", "progress_reporter")),
	}
}

// OnProgress implements store.Progress.
func (r *ProgressReporter) OnProgress(ctx context.Context, completed, total int) {
	event, err := NewEvent(TypeCommitProgress, CommitProgress{Completed: completed, Total: total})
	if err != nil {
		r.logger.Error("failed to build progress event", slog.String("error", err.Error()))
		return
	}
	if err := r.emitter.EmitEvent(ctx, event); err != nil {
		r.logger.Warn("progress event was not handled",
			slog.Int("completed", completed),
			slog.Int("total", total),
			slog.String("error", err.Error()))
	}
}
