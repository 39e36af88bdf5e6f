// Package jobs runs periodic maintenance such as the warehouse stock refresh
// on a robfig/cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobFunc is one run of a scheduled job. ctx carries the job timeout and is
// cancelled when the scheduler stops.
type JobFunc func(ctx context.Context) error

// RunInfo describes the most recent run of a job
type RunInfo struct {
	Name      string
	Schedule  string
	LastStart time.Time
	Duration  time.Duration
	Err       error
	Runs      int
}

type entry struct {
	id      cron.EntryID
	job     JobFunc
	timeout time.Duration
	info    RunInfo
}

// Scheduler manages background jobs using cron scheduling. Overlapping runs
// of the same job are skipped and panics are recovered.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*entry
}

// NewScheduler creates a new job scheduler with the given logger.
func NewScheduler(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{logger}),
			cron.Recover(cronLogger{logger}),
		)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*entry),
	}
}

// Start starts the scheduler. Jobs added before this call will begin running.
func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler", zap.Strings("jobs", s.GetJobNames()))
	s.cron.Start()
}

// Stop cancels running jobs and stops the scheduler. The returned context is
// done once in-flight runs have returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping job scheduler")
	s.cancel()
	return s.cron.Stop()
}

// AddJob adds a job with the given name and cron expression. The parser
// requires the seconds field, e.g. "0 */15 * * * *", or a descriptor such
// as "@every 15m". A positive timeout bounds each run.
func (s *Scheduler) AddJob(name, cronExpr string, timeout time.Duration, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(cronExpr, func() { _ = s.run(name, timeout, job) })
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobs[name] = &entry{id: id, job: job, timeout: timeout, info: RunInfo{Name: name, Schedule: cronExpr}}
	s.logger.Info("added scheduled job",
		zap.String("job_name", name),
		zap.String("cron_expr", cronExpr),
		zap.Duration("timeout", timeout))
	return nil
}

// RunNow executes a registered job synchronously outside its schedule and
// returns its error
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	return s.run(name, e.timeout, e.job)
}

func (s *Scheduler) run(name string, timeout time.Duration, job JobFunc) error {
	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Debug("running scheduled job", zap.String("job_name", name))
	err := job(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	if e, ok := s.jobs[name]; ok {
		e.info.LastStart = start
		e.info.Duration = elapsed
		e.info.Err = err
		e.info.Runs++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed",
			zap.String("job_name", name),
			zap.Duration("duration", elapsed),
			zap.Error(err))
	}
	return err
}

// RemoveJob removes a job by name.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(e.id)
	delete(s.jobs, name)
	s.logger.Info("removed scheduled job", zap.String("job_name", name))
	return nil
}

// GetJobNames returns the names of all registered jobs, sorted.
func (s *Scheduler) GetJobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LastRun reports the latest run of a job; ok is false for unknown names
func (s *Scheduler) LastRun(name string) (RunInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[name]
	if !ok {
		return RunInfo{}, false
	}
	return e.info, true
}

// cronLogger routes cron's own messages (skips, recovered panics) to zap
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
