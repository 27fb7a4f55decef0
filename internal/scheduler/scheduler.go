// Package scheduler re-indexes the maildir root on a cron schedule and on
// demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/whunmr/mu/internal/indexer"
)

var (
	// ErrStopped is returned by Trigger after Stop.
	ErrStopped = errors.New("scheduler is stopped")
	// ErrAlreadyRunning is returned by Trigger while a run is in progress.
	ErrAlreadyRunning = errors.New("indexing already running")
)

// IndexFunc performs one indexing run.
type IndexFunc func(ctx context.Context) (*indexer.Stats, error)

// Status describes the scheduler and its most recent run.
type Status struct {
	Schedule     string         `json:"schedule,omitempty"`
	Running      bool           `json:"running"`
	Runs         int            `json:"runs"`
	LastRun      time.Time      `json:"last_run,omitempty"`
	LastDuration time.Duration  `json:"last_duration,omitempty"`
	LastStats    *indexer.Stats `json:"last_stats,omitempty"`
	LastError    string         `json:"last_error,omitempty"`
	NextRun      time.Time      `json:"next_run,omitempty"`
}

// Scheduler runs an IndexFunc from cron and from Trigger, never more than
// one at a time.
type Scheduler struct {
	cron   *cron.Cron
	index  IndexFunc
	logger *slog.Logger

	mu        sync.RWMutex
	entry     cron.EntryID
	schedule  string
	running   bool
	runs      int
	lastRun   time.Time
	lastDur   time.Duration
	lastStats *indexer.Stats
	lastErr   error

	ctx     context.Context    // cancelled on Stop
	cancel  context.CancelFunc // cancels ctx
	wg      sync.WaitGroup     // tracks running index goroutines
	started bool
	stopped bool
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// New creates a scheduler with no schedule; use SetSchedule to add one.
func New(index IndexFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(newParser())),
		index:  index,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// WithLogger sets the logger for the scheduler.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// SetSchedule runs indexing on the given 5-field cron expression,
// replacing any earlier schedule.
func (s *Scheduler) SetSchedule(expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(expr, func() {
		if err := s.start(); err != nil {
			s.logger.Debug("skipping scheduled index run", "reason", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = id
	s.schedule = expr
	s.logger.Info("scheduled indexing", "schedule", expr, "next_run", s.cron.Entry(id).Next)
	return nil
}

// ClearSchedule removes the schedule. Trigger keeps working.
func (s *Scheduler) ClearSchedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
		s.schedule = ""
	}
}

// Start begins executing scheduled runs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule)
}

// IsRunning returns true if the scheduler has been started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop stops the cron loop, cancels a run in progress and returns a context
// that is done once it has returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// Trigger starts a run now, outside the schedule.
func (s *Scheduler) Trigger() error {
	return s.start()
}

func (s *Scheduler) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.wg.Add(1)
	go s.run()
	return nil
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.logger.Info("index run starting")
	start := time.Now()
	stats, err := s.index(s.ctx)
	dur := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runs++
	s.lastRun = start
	s.lastDur = dur
	s.lastErr = err
	if err != nil {
		s.logger.Error("index run failed", "duration", dur, "error", err)
		return
	}
	s.lastStats = stats
	s.logger.Info("index run completed", "duration", dur)
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Schedule:     s.schedule,
		Running:      s.running,
		Runs:         s.runs,
		LastRun:      s.lastRun,
		LastDuration: s.lastDur,
		LastStats:    s.lastStats,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.entry != 0 {
		st.NextRun = s.cron.Entry(s.entry).Next
	}
	return st
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	if _, err := newParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
