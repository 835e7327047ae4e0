package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-co-op/gocron/v2"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/config"
	deliverydomain "github.com/railzwaylabs/waterline/internal/delivery/domain"
	"github.com/railzwaylabs/waterline/internal/observability"
	"github.com/railzwaylabs/waterline/internal/scheduler/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const retentionInterval = 6 * time.Hour

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Config     config.Config
	Clock      clock.Clock
	GenID      *snowflake.Node
	Deliveries deliverydomain.Service
	Metrics    *observability.Metrics `optional:"true"`
}

// Scheduler owns the in-process cron that materializes deliveries ahead of time
// and prunes its own audit trail.
type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.SchedulerConfig
	clock      clock.Clock
	genID      *snowflake.Node
	deliveries deliverydomain.Service
	metrics    *observability.Metrics

	runHour   uint
	runMinute uint
}

func New(p Params) (*Scheduler, error) {
	at, err := time.Parse("15:04", p.Config.Scheduler.RunAt)
	if err != nil {
		return nil, fmt.Errorf("scheduler.run_at must be HH:MM: %w", err)
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.Scheduler,
		clock:      p.Clock,
		genID:      p.GenID,
		deliveries: p.Deliveries,
		metrics:    p.Metrics,
		runHour:    uint(at.Hour()),
		runMinute:  uint(at.Minute()),
	}, nil
}

// RunForever registers the jobs and blocks until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		<-ctx.Done()
		return nil
	}

	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create cron: %w", err)
	}

	_, err = cron.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(s.runHour, s.runMinute, 0))),
		gocron.NewTask(func() {
			if _, err := s.RunDailySchedule(ctx); err != nil {
				s.log.Error("daily schedule failed", zap.Error(err))
			}
		}),
		gocron.WithName(domain.JobDailySchedule),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register %s: %w", domain.JobDailySchedule, err)
	}

	if s.cfg.RetentionDays > 0 {
		_, err = cron.NewJob(
			gocron.DurationJob(retentionInterval),
			gocron.NewTask(func() {
				if err := s.CleanupJobRunsJob(ctx); err != nil {
					s.log.Error("job run retention failed", zap.Error(err))
				}
			}),
			gocron.WithName(domain.JobJobRunRetention),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("register %s: %w", domain.JobJobRunRetention, err)
		}
	}

	cron.Start()
	s.log.Info("scheduler started",
		zap.String("run_at", fmt.Sprintf("%02d:%02d UTC", s.runHour, s.runMinute)),
		zap.Int("lead_days", s.cfg.LeadDays),
	)

	<-ctx.Done()
	if err := cron.Shutdown(); err != nil {
		s.log.Warn("scheduler shutdown", zap.Error(err))
	}
	s.log.Info("scheduler stopped")
	return nil
}

// RunDailySchedule schedules deliveries lead_days ahead of today.
func (s *Scheduler) RunDailySchedule(ctx context.Context) ([]deliverydomain.Delivery, error) {
	target := clock.StartOfDay(s.clock.Now(ctx)).AddDate(0, 0, s.cfg.LeadDays)
	return s.RunScheduleFor(ctx, target)
}

// RunScheduleFor runs the delivery scheduler for target and records the run.
func (s *Scheduler) RunScheduleFor(ctx context.Context, target time.Time) ([]deliverydomain.Delivery, error) {
	day := clock.StartOfDay(target)
	run := s.startRun(ctx, domain.JobDailySchedule, &day)

	created, err := s.deliveries.RunSchedule(ctx, day)
	run.AddProcessed(len(created))
	run.SetDetail("target_day", day.Format(time.DateOnly))
	run.SetDetail("created", len(created))
	s.finishRun(ctx, run, err)

	if err != nil {
		return nil, err
	}
	return created, nil
}

var errNoDatabase = errors.New("scheduler requires database handle")
