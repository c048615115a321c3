package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-regula/internal/common/clock"
	"go-regula/internal/logger"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobBusy    = errors.New("job is already running")
	ErrStopped    = errors.New("scheduler is stopped")
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// JobStatus describes the last run of a job.
type JobStatus struct {
	Name      string        `json:"name"`
	Interval  string        `json:"interval"`
	Runs      int           `json:"runs"`
	LastRun   *time.Time    `json:"lastRun,omitempty"`
	LastError string        `json:"lastError,omitempty"`
	Duration  time.Duration `json:"durationNs"`
}

type jobState struct {
	job    Job
	mu     sync.Mutex
	status JobStatus
}

// Scheduler runs jobs on fixed intervals. Only the process holding the lock
// file runs jobs; any other instance stays passive. A job never overlaps
// with itself.
type Scheduler struct {
	logger *zap.Logger
	clock  clock.Clock
	lock   *flock.Flock

	mu       sync.Mutex
	jobs     map[string]*jobState
	inflight sync.WaitGroup
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	active   bool
	stopping bool
}

func New(lockPath string, clk clock.Clock, log *zap.Logger, jobs ...Job) (*Scheduler, error) {
	s := &Scheduler{
		logger: log.Named("scheduler"),
		clock:  clk,
		jobs:   make(map[string]*jobState, len(jobs)),
	}
	if lockPath != "" {
		s.lock = flock.New(lockPath)
	}
	for _, j := range jobs {
		if j.Name == "" || j.Run == nil || j.Interval <= 0 {
			return nil, fmt.Errorf("invalid job %q: name, interval and run func are required", j.Name)
		}
		if _, dup := s.jobs[j.Name]; dup {
			return nil, fmt.Errorf("duplicate job %q", j.Name)
		}
		s.jobs[j.Name] = &jobState{job: j, status: JobStatus{Name: j.Name, Interval: j.Interval.String()}}
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Start acquires the lock and schedules every job. It returns false, without
// error, when another process holds the lock. A stopped Scheduler cannot be
// started again.
func (s *Scheduler) Start() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return true, nil
	}
	if s.ctx.Err() != nil {
		return false, errors.New("scheduler already stopped")
	}

	if s.lock != nil {
		ok, err := s.lock.TryLock()
		if err != nil {
			return false, fmt.Errorf("acquire scheduler lock: %w", err)
		}
		if !ok {
			s.logger.Info("Another scheduler holds the lock, staying passive", zap.String("lock", s.lock.Path()))
			return false, nil
		}
	}

	cl := logger.NewCronLogger(s.logger)
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	for _, name := range s.names() {
		st := s.jobs[name]
		if _, err := c.AddFunc("@every "+st.job.Interval.String(), func() { _ = s.run(st) }); err != nil {
			s.unlock()
			return false, fmt.Errorf("schedule job %s: %w", name, err)
		}
	}
	c.Start()

	s.cron = c
	s.active = true
	s.logger.Info("Scheduler started", zap.Strings("jobs", s.names()))
	return true, nil
}

// Stop prevents new runs and waits for in-flight ones, scheduled or started
// through RunNow, until ctx is done, at which point their context is
// cancelled. The lock is released only after that.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	wasActive := s.active
	s.active = false
	s.stopping = true
	s.mu.Unlock()

	var err error
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err == nil {
		idle := make(chan struct{})
		go func() {
			s.inflight.Wait()
			close(idle)
		}()
		select {
		case <-idle:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	s.cancel()
	if wasActive {
		s.unlock()
		s.logger.Info("Scheduler stopped")
	}
	return err
}

// RunNow runs a job synchronously on the caller's goroutine.
func (s *Scheduler) RunNow(name string) error {
	st, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(st)
}

func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scheduler) Status() []JobStatus {
	out := make([]JobStatus, 0, len(s.jobs))
	for _, name := range s.names() {
		st := s.jobs[name]
		if st.mu.TryLock() {
			out = append(out, st.status)
			st.mu.Unlock()
		} else {
			out = append(out, JobStatus{Name: name, Interval: st.job.Interval.String(), LastError: "running"})
		}
	}
	return out
}

func (s *Scheduler) run(st *jobState) error {
	if !st.mu.TryLock() {
		return ErrJobBusy
	}
	defer st.mu.Unlock()

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	start := s.clock.Now()
	began := time.Now()
	err := st.job.Run(s.ctx)
	elapsed := time.Since(began)

	st.status.Runs++
	st.status.LastRun = &start
	st.status.Duration = elapsed
	st.status.LastError = ""
	if err != nil {
		st.status.LastError = err.Error()
		s.logger.Error("Job failed", zap.String("job", st.job.Name), zap.Error(err))
	}
	return err
}

func (s *Scheduler) names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) unlock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("Failed to release scheduler lock", zap.Error(err))
	}
}
