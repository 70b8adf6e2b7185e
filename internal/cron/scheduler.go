package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts standard five-field expressions (minute through
// day-of-week), the same grammar the configuration layer validates.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// entry pairs a registered job with the mutex that keeps its runs serial.
type entry struct {
	job     Job
	running sync.Mutex
}

// Scheduler drives the periodic maintenance of the memory subsystem, chiefly
// the nightly compression cycle. A tick that fires while the previous run of
// the same job is still working is skipped rather than queued: the pending
// queue is durable, so a skipped cycle is picked up whole on the next tick.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries []*entry
	byName  map[string]*entry
	logger  *slog.Logger
	cancel  context.CancelFunc
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		byName: make(map[string]*entry),
		logger: logger,
	}
}

// RegisterJob adds a maintenance job before Start. Names identify jobs in
// logs and must be unique.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, dup := s.byName[name]; dup {
		return fmt.Errorf("cron: job %q registered twice", name)
	}
	e := &entry{job: j}
	s.byName[name] = e
	s.entries = append(s.entries, e)
	return nil
}

// Start validates every registered schedule and begins ticking. One bad
// expression fails the whole start, so a mistyped compress schedule is caught
// at boot instead of producing a silently idle daemon.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New(cron.WithParser(scheduleParser))

	for _, e := range s.entries {
		if _, err := s.cron.AddFunc(e.job.Schedule(), func() { s.runOnce(ctx, e) }); err != nil {
			cancel()
			return fmt.Errorf("cron: schedule %q for job %q: %w", e.job.Schedule(), e.job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "jobs", len(s.entries))
	return nil
}

// runOnce executes a single tick of a job, skipping when the previous tick of
// the same job has not returned. TryLock keeps the check-and-acquire atomic.
func (s *Scheduler) runOnce(ctx context.Context, e *entry) {
	if !e.running.TryLock() {
		s.logger.Warn("maintenance tick skipped, previous run still active", "job", e.job.Name())
		return
	}
	defer e.running.Unlock()

	s.logger.Debug("maintenance job started", "job", e.job.Name())
	if err := e.job.Run(ctx); err != nil {
		s.logger.Error("maintenance job failed", "job", e.job.Name(), "error", err)
		return
	}
	s.logger.Debug("maintenance job finished", "job", e.job.Name())
}

// Stop cancels the job context and waits for in-flight runs to return.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("maintenance scheduler stopped")
	}
	return nil
}
