package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/metrics"
)

const defaultInterval = time.Hour

var scheduleParser = robfig.NewParser(
	robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow | robfig.Descriptor,
)

// ServiceParams configure the cron service. Schedule takes precedence over
// Interval when both are set.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Schedule string
	Interval time.Duration
}

// Service runs the registered jobs on a cron schedule or a fixed interval,
// guarded by a distributed lock so only one worker runs a cycle.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	schedule string
	interval time.Duration
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	schedule := strings.TrimSpace(params.Schedule)
	if schedule != "" {
		if _, err := scheduleParser.Parse(schedule); err != nil {
			return nil, fmt.Errorf("parse cron schedule %q: %w", schedule, err)
		}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		schedule: schedule,
		interval: interval,
	}, nil
}

// Run executes one cycle immediately and then keeps running cycles until ctx
// is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	if s.schedule != "" {
		return s.runScheduled(ctx)
	}
	return s.runTicker(ctx)
}

// RunOnce executes a single locked cycle. When names are given only those
// jobs run, in the given order.
func (s *Service) RunOnce(ctx context.Context, names ...string) error {
	jobs := s.registry.Jobs()
	if len(names) > 0 {
		jobs = jobs[:0]
		for _, name := range names {
			job, ok := s.registry.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown job %q", name)
			}
			jobs = append(jobs, job)
		}
	}
	return s.runJobs(ctx, jobs)
}

func (s *Service) runTicker(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

func (s *Service) runScheduled(ctx context.Context) error {
	cronLogger := schedulerLogger{ctx: ctx, logg: s.logg}
	scheduler := robfig.New(
		robfig.WithParser(scheduleParser),
		robfig.WithLocation(time.UTC),
		robfig.WithChain(robfig.Recover(cronLogger), robfig.SkipIfStillRunning(cronLogger)),
	)
	if _, err := scheduler.AddFunc(s.schedule, func() {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule cycle: %w", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "schedule", s.schedule), "cron schedule registered")
	scheduler.Start()

	<-ctx.Done()
	s.logg.Info(ctx, "cron service context canceled")
	<-scheduler.Stop().Done()
	return ctx.Err()
}

func (s *Service) runCycle(ctx context.Context) error {
	return s.runJobs(ctx, s.registry.Jobs())
}

func (s *Service) runJobs(ctx context.Context, jobs []Job) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		s.metrics.IncSkipped()
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled run starting")
	for _, job := range jobs {
		s.runJob(ctx, job)
	}
	s.logg.Info(ctx, "scheduled run complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}

// schedulerLogger adapts the service logger to robfig's Logger interface.
type schedulerLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l schedulerLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logg.Debug(l.logg.WithFields(l.ctx, pairs(keysAndValues)), "scheduler: "+msg)
}

func (l schedulerLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logg.Error(l.logg.WithFields(l.ctx, pairs(keysAndValues)), "scheduler: "+msg, err)
}

func pairs(keysAndValues []interface{}) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
