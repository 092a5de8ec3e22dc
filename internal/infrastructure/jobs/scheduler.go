// Package jobs runs periodic maintenance on a cron schedule
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
)

// Job is one named unit of periodic work
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs with cron. A run that is still going when its next
// tick arrives makes that tick skip.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.RWMutex
	jobs    map[string]Job
	ctx     context.Context
	cancel  context.CancelFunc
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewScheduler creates a stopped scheduler
func NewScheduler(metrics *monitoring.Metrics, logger *zap.Logger) *Scheduler {
	logger = logger.Named("jobs")
	cronLogger := zapCronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		jobs:    make(map[string]Job),
		ctx:     ctx,
		cancel:  cancel,
		metrics: metrics,
		logger:  logger,
	}
}

// Add registers a job. The schedule uses the standard five-field cron
// syntax or descriptors such as "@every 6h".
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { _ = s.run(s.ctx, job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}
	s.jobs[job.Name] = job
	s.logger.Info("Job scheduled", zap.String("job", job.Name), zap.String("schedule", job.Schedule))
	return nil
}

// Jobs lists registered job names
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow runs a registered job immediately on the caller's goroutine
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(ctx, job)
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Job scheduler started", zap.Int("jobs", len(s.Jobs())))
}

// Stop cancels running jobs and waits for them until ctx ends
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("Job scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs to finish: %w", ctx.Err())
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	s.metrics.RecordJobRun(job.Name, err)

	fields := []zap.Field{zap.String("job", job.Name), zap.Duration("duration", time.Since(start))}
	if err != nil {
		s.logger.Error("Job failed", append(fields, zap.Error(err))...)
		return err
	}
	s.logger.Info("Job finished", fields...)
	return nil
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
