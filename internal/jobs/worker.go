package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

type ImportWorker struct {
	river.WorkerDefaults[ImportArgs]
	reg     *registry
	timeout time.Duration
}

func (w *ImportWorker) Timeout(job *river.Job[ImportArgs]) time.Duration {
	return w.timeout
}

func (w *ImportWorker) Work(ctx context.Context, job *river.Job[ImportArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return settle(w.reg.runImport(ctx, job.Args))
}

type ExportWorker struct {
	river.WorkerDefaults[ExportArgs]
	reg     *registry
	timeout time.Duration
}

func (w *ExportWorker) Timeout(job *river.Job[ExportArgs]) time.Duration {
	return w.timeout
}

func (w *ExportWorker) Work(ctx context.Context, job *river.Job[ExportArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return settle(w.reg.runExport(ctx, job.Args))
}

type PurgeWorker struct {
	river.WorkerDefaults[PurgeArgs]
	reg *registry
}

func (w *PurgeWorker) Work(ctx context.Context, job *river.Job[PurgeArgs]) error {
	n, err := w.reg.purge(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		zap.S().Named("jobs").Infof("purged %d expired export artifacts", n)
	}
	return nil
}

// settle cancels redelivered tasks for jobs that already left PENDING.
func settle(err error) error {
	if errors.Is(err, ErrNotRunnable) {
		zap.S().Named("jobs").Debugw("dropping task", "reason", err)
		return river.JobCancel(err)
	}
	return err
}
