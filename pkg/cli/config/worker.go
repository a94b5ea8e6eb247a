package config

import (
	"log/slog"
	"time"

	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/service/worker"
	"github.com/urfave/cli/v3"
)

// Worker configures the recovery of question sets stuck in analyzing
type Worker struct {
	interval time.Duration
	timeout  time.Duration
}

func (x *Worker) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "stale-analysis-interval",
			Usage:       "Interval of the stale analysis sweep (0 disables the worker)",
			Category:    "Worker",
			Value:       time.Minute,
			Sources:     cli.EnvVars("PULSECHECK_STALE_ANALYSIS_INTERVAL"),
			Destination: &x.interval,
		},
		&cli.DurationFlag{
			Name:        "stale-analysis-timeout",
			Usage:       "Age after which an analyzing question set is returned to completed",
			Category:    "Worker",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("PULSECHECK_STALE_ANALYSIS_TIMEOUT"),
			Destination: &x.timeout,
		},
	}
}

func (x Worker) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("interval", x.interval),
		slog.Duration("timeout", x.timeout),
	)
}

// Configure returns the worker, or nil when the sweep is disabled
func (x *Worker) Configure(repo interfaces.Repository) *worker.StaleAnalysisWorker {
	if x.interval <= 0 {
		return nil
	}
	return worker.NewStaleAnalysisWorker(repo, x.interval, x.timeout)
}
