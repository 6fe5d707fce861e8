package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/user/slotwatch/internal/entity"
	"github.com/user/slotwatch/internal/repository"
	"github.com/user/slotwatch/pkg/metrics"
)

const (
	DefaultPollPeriod      = 200 * time.Second
	DefaultInitialDelay    = 10 * time.Second
	DefaultFailureCooldown = 120 * time.Minute
)

var (
	ErrTaskCrash      = errors.New("monitor task crashed")
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// SchedulerOptions configures a Scheduler. Zero durations take the defaults.
type SchedulerOptions struct {
	Period       time.Duration
	InitialDelay time.Duration
	// Stagger is added to InitialDelay once per task index.
	Stagger         time.Duration
	FailureCooldown time.Duration

	Sink      repository.NotificationSink
	Cooldowns repository.CooldownRepository
	// Filler picks the "no slot" phrase; defaults to RandomNoSlotFiller.
	Filler func() string
}

// Scheduler runs every MonitorTask on its own fixed-rate schedule. A task's
// next cycle is skipped while its previous cycle is still running.
type Scheduler struct {
	tasks []*MonitorTask
	opts  SchedulerOptions
	cron  *cron.Cron

	mu          sync.Mutex
	started     bool
	cycleCancel context.CancelFunc
}

// NewScheduler creates a scheduler for a fixed set of tasks.
func NewScheduler(tasks []*MonitorTask, opts SchedulerOptions) *Scheduler {
	if opts.Period <= 0 {
		opts.Period = DefaultPollPeriod
	}
	if opts.InitialDelay < 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.FailureCooldown <= 0 {
		opts.FailureCooldown = DefaultFailureCooldown
	}
	if opts.Filler == nil {
		opts.Filler = RandomNoSlotFiller
	}

	return &Scheduler{
		tasks: tasks,
		opts:  opts,
		cron:  cron.New(cron.WithLogger(newCronLogger(slog.Default(), ""))),
	}
}

// Start schedules all tasks. Cycles run with a context derived from ctx that
// is only cancelled once Shutdown gives up waiting for in-flight cycles.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	cycleCtx, cancel := context.WithCancel(ctx)
	s.cycleCancel = cancel

	base := time.Now()
	for i, task := range s.tasks {
		task := task
		schedule := staggeredSchedule{
			first:  base.Add(s.opts.InitialDelay + time.Duration(i)*s.opts.Stagger),
			period: s.opts.Period,
		}
		job := cron.NewChain(
			cron.SkipIfStillRunning(newCronLogger(slog.Default(), task.Name())),
		).Then(cron.FuncJob(func() { s.runCycle(cycleCtx, task) }))

		entryID := s.cron.Schedule(schedule, job)
		slog.Info("Scheduled monitor task",
			"target", task.Name(),
			"entry_id", entryID,
			"first_run", schedule.first.Format(time.RFC3339),
			"period", s.opts.Period.String())
	}

	s.cron.Start()
	slog.Info("Scheduler started", "tasks", len(s.tasks))
	return nil
}

// Shutdown stops issuing cycles, waits for in-flight cycles until ctx is done,
// then closes every task's probe.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	cancel := s.cycleCancel
	s.mu.Unlock()

	if started {
		stopped := s.cron.Stop()
		select {
		case <-stopped.Done():
			slog.Info("All in-flight cycles completed")
		case <-ctx.Done():
			slog.Warn("Shutdown grace expired with cycles still running", "error", ctx.Err())
		}
		cancel()
	}

	var errs []error
	for _, task := range s.tasks {
		if err := task.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", task.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Snapshots returns the current state of every task.
func (s *Scheduler) Snapshots() []entity.TargetSnapshot {
	out := make([]entity.TargetSnapshot, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Snapshot())
	}
	return out
}

// Snapshot returns the state of one task by name.
func (s *Scheduler) Snapshot(name string) (entity.TargetSnapshot, bool) {
	for _, t := range s.tasks {
		if t.Name() == name {
			return t.Snapshot(), true
		}
	}
	return entity.TargetSnapshot{}, false
}

// runCycle executes one cycle for task. Any panic is contained here so the
// task's schedule and its siblings keep running. Crash alerts share the
// target's failure cooldown.
func (s *Scheduler) runCycle(ctx context.Context, task *MonitorTask) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrTaskCrash, r)
			slog.Error("Monitor task crashed", "target", task.Name(), "error", err, "stack", string(debug.Stack()))
			if !s.failureAlertDue(ctx, task.Name()) {
				metrics.AlertsTotal.WithLabelValues(task.Name(), "crash_suppressed").Inc()
				return
			}
			metrics.AlertsTotal.WithLabelValues(task.Name(), "crash").Inc()
			s.notify(ctx, task.Name(), "crashed: "+err.Error())
		}
	}()

	status, outcome := task.RunOnce(ctx)
	s.dispatch(ctx, task.Name(), Decide(task.Name(), status, outcome, s.opts.Filler))
}

func (s *Scheduler) dispatch(ctx context.Context, target string, d Decision) {
	switch d.Action {
	case ActionNotifyTransition:
		metrics.AlertsTotal.WithLabelValues(target, d.Action.String()).Inc()
		s.notify(ctx, d.Title, d.Body)
		if d.DirectAlert != "" {
			s.sendDirect(ctx, d.DirectAlert)
		}
	case ActionReportFailure:
		if !s.failureAlertDue(ctx, target) {
			metrics.AlertsTotal.WithLabelValues(target, d.Action.String()+"_suppressed").Inc()
			slog.Info("Failure alert suppressed by cooldown", "target", target, "reason", d.Body)
			return
		}
		metrics.AlertsTotal.WithLabelValues(target, d.Action.String()).Inc()
		s.notify(ctx, d.Title, d.Body)
	default:
		slog.Debug("Cycle completed without transition", "target", target)
	}
}

// failureAlertDue consults the cooldown store. Store errors fail open so a
// broken store cannot hide probe failures entirely.
func (s *Scheduler) failureAlertDue(ctx context.Context, target string) bool {
	if s.opts.Cooldowns == nil {
		return true
	}
	ok, err := s.opts.Cooldowns.TryAcquire(ctx, target, s.opts.FailureCooldown)
	if err != nil {
		slog.Warn("Cooldown store unavailable, alerting anyway", "target", target, "error", err)
		return true
	}
	return ok
}

func (s *Scheduler) notify(ctx context.Context, title, body string) {
	if s.opts.Sink == nil {
		return
	}
	if err := s.opts.Sink.Notify(ctx, title, body); err != nil {
		slog.Warn("Notification failed", "target", title, "error", err)
	}
}

func (s *Scheduler) sendDirect(ctx context.Context, text string) {
	if s.opts.Sink == nil {
		return
	}
	if err := s.opts.Sink.SendDirectAlert(ctx, text); err != nil {
		slog.Warn("Direct alert failed", "error", err)
	}
}

// staggeredSchedule fires at first, then every period after it, on a fixed grid.
type staggeredSchedule struct {
	first  time.Time
	period time.Duration
}

func (s staggeredSchedule) Next(t time.Time) time.Time {
	if t.Before(s.first) {
		return s.first
	}
	n := t.Sub(s.first)/s.period + 1
	return s.first.Add(n * s.period)
}

// cronLogger adapts slog to cron.Logger and counts skipped cycles.
type cronLogger struct {
	log    *slog.Logger
	target string
}

func newCronLogger(l *slog.Logger, target string) cron.Logger {
	if target != "" {
		l = l.With("target", target)
	}
	return cronLogger{log: l, target: target}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" && c.target != "" {
		metrics.CyclesSkippedTotal.WithLabelValues(c.target).Inc()
		c.log.Warn("Previous cycle still running, skipping", keysAndValues...)
		return
	}
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
