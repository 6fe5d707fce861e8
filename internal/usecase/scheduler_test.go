package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/slotwatch/internal/adapter/memory"
	"github.com/user/slotwatch/internal/entity"
)

func TestStaggeredSchedule_Next(t *testing.T) {
	first := time.Date(2024, 3, 1, 9, 0, 10, 0, time.UTC)
	s := staggeredSchedule{first: first, period: 200 * time.Second}

	assert.Equal(t, first, s.Next(first.Add(-time.Second)))
	assert.Equal(t, first.Add(200*time.Second), s.Next(first))
	assert.Equal(t, first.Add(200*time.Second), s.Next(first.Add(199*time.Second)))
	assert.Equal(t, first.Add(400*time.Second), s.Next(first.Add(200*time.Second)))
	// Overruns land back on the grid instead of drifting.
	assert.Equal(t, first.Add(600*time.Second), s.Next(first.Add(450*time.Second)))
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(nil, SchedulerOptions{InitialDelay: -1})

	assert.Equal(t, DefaultPollPeriod, s.opts.Period)
	assert.Equal(t, DefaultInitialDelay, s.opts.InitialDelay)
	assert.Equal(t, DefaultFailureCooldown, s.opts.FailureCooldown)
	assert.NotNil(t, s.opts.Filler)
}

func TestScheduler_SingleFlightPerTask(t *testing.T) {
	probe := newScriptedProbe(entity.Unavailable())
	probe.delay = 150 * time.Millisecond
	task := NewMonitorTask("slow", probe, nil)

	s := NewScheduler([]*MonitorTask{task}, SchedulerOptions{
		Period: 20 * time.Millisecond,
		Sink:   &recordingSink{},
	})
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return probe.Calls() >= 2 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	assert.Equal(t, int32(1), probe.maxActive.Load())
	assert.True(t, probe.Closed())
}

func TestScheduler_StartTwice(t *testing.T) {
	s := NewScheduler(nil, SchedulerOptions{Period: time.Hour})
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestScheduler_FailureAlertsAreRateLimited(t *testing.T) {
	clock := newSyncClock()
	sink := &recordingSink{}
	probe := newScriptedProbe(entity.ScrapeError(errors.New("boom")))
	task := NewMonitorTask("shipt-target", probe, nil)

	s := NewScheduler([]*MonitorTask{task}, SchedulerOptions{
		Sink:      sink,
		Cooldowns: memory.NewCooldownRepo(clock.Now),
	})
	ctx := context.Background()

	s.runCycle(ctx, task)
	clock.Advance(time.Minute)
	s.runCycle(ctx, task)
	require.Len(t, sink.Notes(), 1)
	assert.Equal(t, "shipt-target", sink.Notes()[0].Title)
	assert.Equal(t, "availability check failed (scrape_error): boom", sink.Notes()[0].Body)

	clock.Advance(120 * time.Minute)
	s.runCycle(ctx, task)
	assert.Len(t, sink.Notes(), 2)
	assert.Empty(t, sink.Direct())
}

type failingCooldowns struct{}

func (failingCooldowns) TryAcquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestScheduler_CooldownStoreErrorFailsOpen(t *testing.T) {
	sink := &recordingSink{}
	task := NewMonitorTask("weee", newScriptedProbe(entity.Indeterminate()), nil)
	s := NewScheduler([]*MonitorTask{task}, SchedulerOptions{Sink: sink, Cooldowns: failingCooldowns{}})

	s.runCycle(context.Background(), task)
	s.runCycle(context.Background(), task)

	assert.Len(t, sink.Notes(), 2)
}

func TestScheduler_TransitionDispatch(t *testing.T) {
	sink := &recordingSink{}
	probe := newScriptedProbe(
		entity.Unavailable(),
		entity.Available("Today 4-6pm"),
		entity.Available("Today 4-6pm"),
		entity.Unavailable(),
	)
	task := NewMonitorTask("sprouts", probe, nil)
	s := NewScheduler([]*MonitorTask{task}, SchedulerOptions{
		Sink:   sink,
		Filler: func() string { return "nada" },
	})
	ctx := context.Background()

	s.runCycle(ctx, task)
	assert.Empty(t, sink.Notes(), "first observation is never an edge")

	s.runCycle(ctx, task)
	notes := sink.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "sprouts", notes[0].Title)
	assert.Contains(t, notes[0].Body, "Spots available for Today 4-6pm, after ")
	assert.Contains(t, notes[0].Body, " go go go")
	direct := sink.Direct()
	require.Len(t, direct, 1)
	assert.Contains(t, direct[0], "sprouts: Spots available for Today 4-6pm")
	assert.NotContains(t, direct[0], "go go go")

	s.runCycle(ctx, task)
	assert.Len(t, sink.Notes(), 1)

	s.runCycle(ctx, task)
	notes = sink.Notes()
	require.Len(t, notes, 2)
	assert.Contains(t, notes[1].Body, "slot status: nada, lasted ")
	assert.Len(t, sink.Direct(), 1, "slot loss never reaches the remote channel")
}

func TestScheduler_CrashIsIsolated(t *testing.T) {
	sink := &recordingSink{}
	bad := newScriptedProbe()
	bad.panicMsg = "nil element"
	good := newScriptedProbe(entity.Unavailable())

	badTask := NewMonitorTask("bad", bad, nil)
	goodTask := NewMonitorTask("good", good, nil)
	s := NewScheduler([]*MonitorTask{badTask, goodTask}, SchedulerOptions{
		Period:    20 * time.Millisecond,
		Sink:      sink,
		Cooldowns: memory.NewCooldownRepo(nil),
	})
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return bad.Calls() >= 2 && good.Calls() >= 3
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))

	var crashes int
	for _, n := range sink.Notes() {
		if n.Title == "bad" {
			assert.Contains(t, n.Body, "crashed: monitor task crashed: nil element")
			crashes++
		}
	}
	assert.Equal(t, 1, crashes, "repeated crashes inside one cooldown window alert once")

	snap, ok := s.Snapshot("good")
	require.True(t, ok)
	assert.Equal(t, entity.StateNoSlot, snap.State)
}

func TestScheduler_CrashAlertsAreRateLimited(t *testing.T) {
	clock := newSyncClock()
	sink := &recordingSink{}
	bad := newScriptedProbe()
	bad.panicMsg = "nil element"
	task := NewMonitorTask("costco", bad, nil)

	s := NewScheduler([]*MonitorTask{task}, SchedulerOptions{
		Sink:      sink,
		Cooldowns: memory.NewCooldownRepo(clock.Now),
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.runCycle(ctx, task)
		clock.Advance(200 * time.Second)
	}
	require.Len(t, sink.Notes(), 1)
	assert.Contains(t, sink.Notes()[0].Body, "crashed: monitor task crashed: nil element")

	clock.Advance(120 * time.Minute)
	s.runCycle(ctx, task)
	assert.Len(t, sink.Notes(), 2)
	assert.Equal(t, 6, bad.Calls())
}

func TestScheduler_CrashAndFailureShareCooldown(t *testing.T) {
	sink := &recordingSink{}
	p := newScriptedProbe(entity.ScrapeError(errors.New("boom")))
	task := NewMonitorTask("costco", p, nil)
	s := NewScheduler([]*MonitorTask{task}, SchedulerOptions{
		Sink:      sink,
		Cooldowns: memory.NewCooldownRepo(nil),
	})
	ctx := context.Background()

	s.runCycle(ctx, task)
	p.panicMsg = "nil element"
	s.runCycle(ctx, task)

	require.Len(t, sink.Notes(), 1)
	assert.Contains(t, sink.Notes()[0].Body, "boom")
}

func TestScheduler_ShutdownWithoutStartClosesProbes(t *testing.T) {
	p1, p2 := newScriptedProbe(), newScriptedProbe()
	s := NewScheduler([]*MonitorTask{
		NewMonitorTask("a", p1, nil),
		NewMonitorTask("b", p2, nil),
	}, SchedulerOptions{})

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, p1.Closed())
	assert.True(t, p2.Closed())
	assert.Len(t, s.Snapshots(), 2)
	_, ok := s.Snapshot("missing")
	assert.False(t, ok)
}
