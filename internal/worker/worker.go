// Package worker runs the background maintenance jobs of the porch service
// on a River client backed by the service's Postgres pool.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"

	"github.com/mgcam/npg-porch/internal/porch"
	"github.com/mgcam/npg-porch/pkg/logger"
)

// Options configure the background maintenance schedule.
type Options struct {
	// SweepInterval is how often the stale claim sweep runs.
	SweepInterval time.Duration
	// MaxWorkers caps concurrent job execution on the default queue.
	MaxWorkers int
}

// Start registers the maintenance workers and starts the River client.
// When interval is zero no periodic jobs are scheduled, which effectively
// disables the sweeper.
func Start(
	ctx context.Context,
	dbPool *pgxpool.Pool,
	service porch.Porch,
	opts Options) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &SweepWorker{service: service})

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	var periodic []*river.PeriodicJob
	if opts.SweepInterval > 0 {
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(opts.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return porch.SweepArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
