package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/user/slotwatch/internal/entity"
	"github.com/user/slotwatch/internal/repository"
	"github.com/user/slotwatch/pkg/logger"
	"github.com/user/slotwatch/pkg/metrics"
)

const availableMessagePrefix = "Spots available for "

// MonitorTask binds one probe to its private tracker. RunOnce must not be
// called concurrently for the same task; Snapshot may be.
type MonitorTask struct {
	name        string
	probe       repository.SiteProbe
	tracker     *Tracker
	transitions repository.TransitionRepository
	now         func() time.Time
	log         *slog.Logger

	mu   sync.RWMutex
	snap entity.TargetSnapshot
}

// TaskOption customizes a MonitorTask.
type TaskOption func(*MonitorTask)

// WithTransitionRepository persists every edge transition on a best-effort basis.
func WithTransitionRepository(repo repository.TransitionRepository) TaskOption {
	return func(t *MonitorTask) { t.transitions = repo }
}

// WithClock overrides the wall clock used for snapshots.
func WithClock(now func() time.Time) TaskOption {
	return func(t *MonitorTask) { t.now = now }
}

// NewMonitorTask creates a task. A nil tracker gets a fresh one.
func NewMonitorTask(name string, probe repository.SiteProbe, tracker *Tracker, opts ...TaskOption) *MonitorTask {
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	t := &MonitorTask{
		name:    name,
		probe:   probe,
		tracker: tracker,
		now:     time.Now,
		log:     logger.ForTarget(name),
		snap:    entity.TargetSnapshot{Name: name, State: entity.StateUnknown},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *MonitorTask) Name() string { return t.name }

// RunOnce executes one check cycle. A nil status means the cycle produced no
// information and the tracker was left untouched.
func (t *MonitorTask) RunOnce(ctx context.Context) (*entity.SlotStatus, entity.ProbeOutcome) {
	start := t.now()
	began := time.Now()
	outcome := t.probe.Check(ctx)
	metrics.CheckDuration.WithLabelValues(t.name).Observe(time.Since(began).Seconds())
	metrics.ChecksTotal.WithLabelValues(t.name, outcome.Kind.String()).Inc()

	if !outcome.Definite() {
		t.log.Error("Check produced no result", "outcome", outcome.Kind.String(), "error", outcome.Err)
		t.recordFailure(start, outcome)
		return nil, outcome
	}

	status := t.tracker.Update(outcome.State())
	if status.SlotFound {
		status.NotificationMessage = availableMessagePrefix + outcome.Detail
		t.log.Info(status.NotificationMessage)
		metrics.SlotAvailable.WithLabelValues(t.name).Set(1)
	} else {
		t.log.Info("no slots")
		metrics.SlotAvailable.WithLabelValues(t.name).Set(0)
	}

	if status.IsEdgeTransition {
		metrics.TransitionsTotal.WithLabelValues(t.name, outcome.State().String()).Inc()
		t.persistTransition(ctx, status)
	}

	t.recordSuccess(start, outcome, status)
	return &status, outcome
}

// CurrentlyHasSlot reports whether the last definite check found a slot.
func (t *MonitorTask) CurrentlyHasSlot() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.State == entity.StateHasSlot
}

// Snapshot returns a copy of the task's externally visible state.
func (t *MonitorTask) Snapshot() entity.TargetSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Close releases the probe.
func (t *MonitorTask) Close() error {
	return t.probe.Close()
}

func (t *MonitorTask) recordFailure(at time.Time, outcome entity.ProbeOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.LastCheckAt = &at
	t.snap.LastOutcome = outcome.Kind.String()
	t.snap.ConsecutiveFailures++
}

func (t *MonitorTask) recordSuccess(at time.Time, outcome entity.ProbeOutcome, status entity.SlotStatus) {
	lastTransition := t.tracker.LastTransition()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.State = t.tracker.State()
	t.snap.LastCheckAt = &at
	t.snap.LastTransitionAt = &lastTransition
	t.snap.LastOutcome = outcome.Kind.String()
	t.snap.LastMessage = status.NotificationMessage
	t.snap.ConsecutiveFailures = 0
}

func (t *MonitorTask) persistTransition(ctx context.Context, status entity.SlotStatus) {
	if t.transitions == nil {
		return
	}
	record := &entity.Transition{
		Target:         t.name,
		State:          t.tracker.State(),
		TransitionedAt: t.tracker.LastTransition(),
		Message:        status.NotificationMessage,
	}
	if status.TimeSinceTransition != nil {
		record.PreviousFor = *status.TimeSinceTransition
	}
	if err := t.transitions.Save(ctx, record); err != nil {
		// Not critical, the in-memory tracker remains authoritative.
		t.log.Warn("Failed to persist transition", "error", err)
	}
}
