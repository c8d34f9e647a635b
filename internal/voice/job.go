package voice

import (
	"context"
	"log/slog"
	"time"
)

// Retention horizon for raw per-identity usage rows.
const retentionMonths = 3

// LifecycleJob is the monthly usage job. An external scheduler invokes it
// once on the first day of each month; running it again in the same month
// repeats the same archive values and deletes nothing new.
type LifecycleJob struct {
	store Store
	now   func() time.Time
}

func NewLifecycleJob(store Store) *LifecycleJob {
	return &LifecycleJob{store: store, now: time.Now}
}

// Run executes the three phases. Archive and sweep are independent: an
// archive failure is logged and the sweep still runs. The reset phase is
// implicit — next month's rows appear lazily on first use, so there is no
// write-amplifying zeroing pass.
func (j *LifecycleJob) Run(ctx context.Context) error {
	current := MonthOf(j.now())
	previous := current.AddDate(0, -1, 0)

	if err := j.archive(ctx, previous); err != nil {
		slog.Error("voice lifecycle: archive phase failed, continuing to sweep", "month", previous.Format("2006-01"), "error", err)
	}

	cutoff := current.AddDate(0, -retentionMonths, 0)
	deleted, err := j.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("voice lifecycle: retention sweep failed", "cutoff", cutoff.Format("2006-01"), "error", err)
		return err
	}
	slog.Info("voice lifecycle: retention sweep done", "cutoff", cutoff.Format("2006-01"), "deleted", deleted)

	return nil
}

func (j *LifecycleJob) archive(ctx context.Context, month time.Time) error {
	summaries, err := j.store.AggregateMonth(ctx, month)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		slog.Info("voice lifecycle: no usage to archive", "month", month.Format("2006-01"))
		return nil
	}

	if err := j.store.UpsertArchive(ctx, summaries); err != nil {
		return err
	}
	slog.Info("voice lifecycle: archived month", "month", month.Format("2006-01"), "tiers", len(summaries))
	return nil
}
