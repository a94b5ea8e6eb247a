package worker

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
)

// StaleAnalysisWorker returns question sets stuck in analyzing back to
// completed so that HR can run the analysis again. A set gets stuck when the
// process dies between claiming the set and committing the result.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - The compare-and-swap on status keeps a live analysis safe when its set
//   is older than the timeout, since the commit then fails with a conflict
type StaleAnalysisWorker struct {
	repo     interfaces.Repository
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// StaleAnalysisOption configures the worker
type StaleAnalysisOption func(*StaleAnalysisWorker)

// WithClock replaces the time source
func WithClock(now func() time.Time) StaleAnalysisOption {
	return func(w *StaleAnalysisWorker) {
		w.now = now
	}
}

// NewStaleAnalysisWorker creates a worker that checks every interval for sets
// that have been analyzing for longer than timeout
func NewStaleAnalysisWorker(repo interfaces.Repository, interval, timeout time.Duration, opts ...StaleAnalysisOption) *StaleAnalysisWorker {
	w := &StaleAnalysisWorker{
		repo:     repo,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background loop. It does not block.
func (w *StaleAnalysisWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.Wrap(model.ErrConfiguration, "stale analysis interval must be positive",
			goerr.V("interval", w.interval.String()))
	}

	logging.Default().Info("Stale analysis worker starting",
		"interval", w.interval.String(),
		"timeout", w.timeout.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *StaleAnalysisWorker) Stop() {
	logging.Default().Info("Stale analysis worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Stale analysis worker stopped")
}

func (w *StaleAnalysisWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				logging.Default().Error("Stale analysis sweep failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Stale analysis worker context cancelled")
			return
		}
	}
}

// Sweep performs one recovery pass and returns the number of sets released
func (w *StaleAnalysisWorker) Sweep(ctx context.Context) (int, error) {
	sets, err := w.repo.QuestionSet().List(ctx, interfaces.WithStatus(types.QuestionSetStatusAnalyzing))
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list analyzing question sets")
	}

	deadline := w.now().Add(-w.timeout)
	released := 0
	for _, set := range sets {
		if set.UpdatedAt.After(deadline) {
			continue
		}

		_, err := w.repo.QuestionSet().CompareAndSwapStatus(ctx, set.ID,
			types.QuestionSetStatusAnalyzing, types.QuestionSetStatusCompleted)
		switch {
		case err == nil:
			released++
			logging.Default().Warn("Released stale analysis",
				"question_set_id", set.ID,
				"analyzing_since", set.UpdatedAt)
		case errors.Is(err, model.ErrStatusConflict), errors.Is(err, model.ErrNotFound):
			// finished or removed since the list
		default:
			return released, goerr.Wrap(err, "failed to release stale analysis",
				goerr.V(model.QuestionSetIDKey, set.ID))
		}
	}

	return released, nil
}
