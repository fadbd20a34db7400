package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"moviepilot/internal/logging"
	"moviepilot/internal/services"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// JobInfo describes a registered job for status output.
type JobInfo struct {
	Name    string
	Spec    string
	Next    time.Time
	Prev    time.Time
	Runs    int
	LastErr string
}

type registered struct {
	id      cron.EntryID
	name    string
	spec    string
	runs    int
	lastErr string
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	jobs   map[string]*registered
	cancel context.CancelFunc
}

// New builds a scheduler. Jobs are registered with Add before Start.
func New(logger *slog.Logger) *Scheduler {
	logger = logging.NewComponentLogger(logger, "scheduler")
	adapter := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		logger: logger,
		jobs:   make(map[string]*registered),
	}
}

// Add registers job under name. An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, job Job) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		s.logger.Info("job disabled", logging.String("job", name))
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return services.Wrap(services.ErrValidation, "scheduler", "add", fmt.Sprintf("job %q already registered", name), nil)
	}
	entry := &registered{name: name, spec: spec}
	id, err := s.cron.AddFunc(spec, func() { s.run(entry, job) })
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "scheduler", "add",
			fmt.Sprintf("invalid schedule %q for %s", spec, name), err)
	}
	entry.id = id
	s.jobs[name] = entry
	return nil
}

// Start begins firing jobs. Runs use a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started", logging.Int("jobs", len(s.Jobs())))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
}

// RunNow runs the named job immediately in the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	return s.invoke(ctx, name, job)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.id)
		out = append(out, JobInfo{
			Name:    job.name,
			Spec:    job.spec,
			Next:    entry.Next,
			Prev:    entry.Prev,
			Runs:    job.runs,
			LastErr: job.lastErr,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) run(entry *registered, job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.invoke(ctx, entry.name, job)

	s.mu.Lock()
	entry.runs++
	entry.lastErr = ""
	if err != nil {
		entry.lastErr = err.Error()
	}
	s.mu.Unlock()
}

func (s *Scheduler) invoke(ctx context.Context, name string, job Job) error {
	if _, ok := services.CycleIDFromContext(ctx); !ok {
		ctx = services.WithCycleID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, s.logger).With(logging.String("job", name))
	start := time.Now()
	logger.Debug("job started")
	err := job(ctx)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		logger.Info("job finished", logging.Duration("duration", elapsed))
	case errors.Is(err, context.Canceled):
		logger.Info("job canceled", logging.Duration("duration", elapsed))
	default:
		logging.WarnWithContext(logger, "job failed", "job_failed",
			logging.Error(err),
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldImpact, "job retried on its next schedule"),
		)
	}
	return err
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{logging.Error(err)}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
