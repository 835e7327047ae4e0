package scheduler

import (
	"context"

	"github.com/railzwaylabs/waterline/internal/scheduler/domain"
	"go.uber.org/zap"
)

// CleanupJobRunsJob deletes job runs that started more than retention_days ago.
func (s *Scheduler) CleanupJobRunsJob(ctx context.Context) error {
	if s.db == nil {
		return errNoDatabase
	}

	retentionDays := s.cfg.RetentionDays
	if retentionDays <= 0 {
		s.log.Info("job run retention disabled", zap.Int("days", retentionDays))
		return nil
	}

	run := s.startRun(ctx, domain.JobJobRunRetention, nil)

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).
		Where("started_at < ? AND id <> ?", cutoff, run.record.ID).
		Delete(&domain.JobRun{})
	if result.Error != nil {
		s.finishRun(ctx, run, result.Error)
		return result.Error
	}

	run.AddProcessed(int(result.RowsAffected))
	run.SetDetail("cutoff", cutoff.Format("2006-01-02T15:04:05Z07:00"))
	s.finishRun(ctx, run, nil)
	return nil
}
