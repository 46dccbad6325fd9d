// Package expiry sweeps bidding commissions past their expiry time
// into the expired status.
package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

type SweepArgs struct{}

func (SweepArgs) Kind() string { return "commission_expiry_sweep" }

// CommissionExpirer flips due commissions and reports how many changed.
type CommissionExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	commissions CommissionExpirer
	logger      *slog.Logger
}

func NewSweepWorker(commissions CommissionExpirer, logger *slog.Logger) *SweepWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepWorker{commissions: commissions, logger: logger}
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepArgs]) error {
	n, err := w.commissions.ExpireDue(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("expire due commissions: %w", err)
	}
	if n > 0 {
		w.logger.Info("expired commissions", "count", n)
	}
	return nil
}

// PeriodicJob schedules the sweep hourly, including once at startup.
func PeriodicJob() *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(time.Hour),
		func() (river.JobArgs, *river.InsertOpts) {
			return SweepArgs{}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
