package scheduler

import (
	"context"
	"time"

	"github.com/railzwaylabs/waterline/internal/scheduler/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type jobRun struct {
	record *domain.JobRun
	stored bool
}

func (r *jobRun) AddProcessed(n int) {
	if n > 0 {
		r.record.Processed += n
	}
}

func (r *jobRun) SetDetail(key string, value any) {
	if r.record.Details == nil {
		r.record.Details = datatypes.JSONMap{}
	}
	r.record.Details[key] = value
}

// startRun writes a RUNNING row. A failed write is logged and the job still
// runs; only the audit trail is lost.
func (s *Scheduler) startRun(ctx context.Context, job string, target *time.Time) *jobRun {
	run := &jobRun{record: &domain.JobRun{
		ID:         s.genID.Generate(),
		JobName:    job,
		TargetDate: target,
		Status:     domain.RunStatusRunning,
		StartedAt:  s.clock.Now(ctx),
	}}

	if err := s.db.WithContext(ctx).Create(run.record).Error; err != nil {
		s.log.Warn("failed to record job start", zap.String("job", job), zap.Error(err))
		return run
	}
	run.stored = true
	s.log.Info("job started", zap.String("job", job), zap.String("run_id", run.record.ID.String()))
	return run
}

func (s *Scheduler) finishRun(ctx context.Context, run *jobRun, jobErr error) {
	finished := s.clock.Now(ctx)
	run.record.FinishedAt = &finished
	run.record.Status = domain.RunStatusSuccess
	if jobErr != nil {
		msg := jobErr.Error()
		run.record.Status = domain.RunStatusFailed
		run.record.Error = &msg
	}
	s.metrics.ObserveSchedulerRun(run.record.JobName, jobErr)

	fields := []zap.Field{
		zap.String("job", run.record.JobName),
		zap.String("status", string(run.record.Status)),
		zap.Int("processed", run.record.Processed),
		zap.Duration("elapsed", finished.Sub(run.record.StartedAt)),
	}
	if jobErr != nil {
		s.log.Error("job finished", append(fields, zap.Error(jobErr))...)
	} else {
		s.log.Info("job finished", fields...)
	}

	if !run.stored {
		return
	}
	// The job context may already be cancelled; the audit row should still land.
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Save(run.record).Error; err != nil {
		s.log.Warn("failed to record job finish", zap.String("job", run.record.JobName), zap.Error(err))
	}
}
