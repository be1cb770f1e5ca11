package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// RunStatus describes the most recent run of a job.
type RunStatus struct {
	Runs      int
	Skipped   int
	LastStart time.Time
	LastTook  time.Duration
	LastErr   error
}

type Option func(*CronScheduler)

// WithRunTimeout bounds each run of every job. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *CronScheduler) {
		s.timeout = d
	}
}

type entry struct {
	job     Job
	spec    string
	id      cron.EntryID
	running bool
	status  RunStatus
}

type CronScheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]*entry
}

func NewCronScheduler(opts ...Option) *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		ctx:     context.Background(),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	e := &entry{job: job, spec: spec}
	id, err := s.cron.AddFunc(spec, func() { _ = s.run(e) })
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	e.id = id
	s.entries[name] = e
	logger.Info("job scheduled")
	return nil
}

// Start runs jobs with ctx; cancelling it cancels runs in flight.
func (s *CronScheduler) Start(ctx context.Context) {
	if ctx != nil {
		s.mu.Lock()
		s.ctx = ctx
		s.mu.Unlock()
	}
	s.cron.Start()
}

func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Trigger runs a scheduled job now, outside its schedule, and waits for it.
func (s *CronScheduler) Trigger(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not scheduled", name)
	}
	return s.run(e)
}

func (s *CronScheduler) Status(name string) (RunStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return RunStatus{}, false
	}
	return e.status, true
}

func (s *CronScheduler) run(e *entry) error {
	s.mu.Lock()
	ctx := s.ctx
	logger := logutil.GetLogger(ctx).With(zap.String("job", e.job.Name()), zap.String("spec", e.spec))
	if e.running {
		e.status.Skipped++
		s.mu.Unlock()
		logger.Info("job skipped: still running")
		return nil
	}
	e.running = true
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	logger.Info("job started")
	err := e.job.Run(ctx)
	took := time.Since(start)

	s.mu.Lock()
	e.running = false
	e.status.Runs++
	e.status.LastStart = start
	e.status.LastTook = took
	e.status.LastErr = err
	s.mu.Unlock()

	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", took))
		return err
	}
	logger.Info("job finished", zap.Duration("duration", took))
	return nil
}
