package safe

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
)

// Close closes c and logs a failure with the given resource name.
// A nil closer is ignored.
func Close(ctx context.Context, c io.Closer, name string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("failed to close", slog.String("resource", name), slog.Any("error", err))
	}
}

// Rollback aborts a transaction-like resource unless it was already
// finished. ErrTxDone style errors are expected after a commit and are
// passed in as done so they are not logged.
func Rollback(ctx context.Context, rollback func() error, done error) {
	if err := rollback(); err != nil && !errors.Is(err, done) {
		logging.From(ctx).Warn("failed to rollback", slog.Any("error", err))
	}
}
