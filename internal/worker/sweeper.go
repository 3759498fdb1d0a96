package worker

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/mgcam/npg-porch/internal/porch"
	"github.com/mgcam/npg-porch/pkg/logger"
)

// SweepWorker is a River worker that releases stale task claims. Agents
// that crash after claiming never report back; without the sweep their
// tasks would sit in CLAIMED forever.
type SweepWorker struct {
	river.WorkerDefaults[porch.SweepArgs]

	service porch.Porch
}

// NewSweepWorker constructs a SweepWorker for the given service.
func NewSweepWorker(service porch.Porch) *SweepWorker {
	return &SweepWorker{service: service}
}

// Work runs a single sweep.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[porch.SweepArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	released, err := w.service.ReleaseStaleClaims(ctx)
	if err != nil {
		logger.Error(ctx, "error releasing stale claims", zap.Error(err))

		return fmt.Errorf("could not release stale claims: %w", err)
	}

	logger.Debug(ctx, "claim sweep finished", zap.Int("released", released))

	return nil
}
