package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/slotwatch/internal/entity"
)

func TestMonitorTask_ScrapeErrorLeavesTrackerUntouched(t *testing.T) {
	probe := newScriptedProbe(
		entity.Unavailable(),
		entity.ScrapeError(errors.New("structure changed")),
		entity.Indeterminate(),
	)
	task := NewMonitorTask("sprouts", probe, nil)

	status, _ := task.RunOnce(context.Background())
	require.NotNil(t, status)
	assert.False(t, status.SlotFound)

	status, outcome := task.RunOnce(context.Background())
	assert.Nil(t, status)
	assert.Equal(t, entity.OutcomeScrapeError, outcome.Kind)
	assert.EqualError(t, outcome.Err, "structure changed")

	status, outcome = task.RunOnce(context.Background())
	assert.Nil(t, status)
	assert.Equal(t, entity.OutcomeIndeterminate, outcome.Kind)

	snap := task.Snapshot()
	assert.Equal(t, entity.StateNoSlot, snap.State)
	assert.Equal(t, 2, snap.ConsecutiveFailures)
	assert.Equal(t, "indeterminate", snap.LastOutcome)
}

func TestMonitorTask_AvailableAttachesMessage(t *testing.T) {
	clock := newFakeClock()
	probe := newScriptedProbe(entity.Unavailable(), entity.Available("Tomorrow 2-4pm"))
	repo := &memoryTransitions{}
	task := NewMonitorTask("costco", probe, NewTracker(clock.Now),
		WithTransitionRepository(repo), WithClock(clock.Now))

	_, _ = task.RunOnce(context.Background())
	clock.Advance(7 * time.Minute)
	status, outcome := task.RunOnce(context.Background())

	require.NotNil(t, status)
	assert.Equal(t, entity.OutcomeAvailable, outcome.Kind)
	assert.True(t, status.SlotFound)
	assert.True(t, status.IsEdgeTransition)
	assert.Equal(t, "Spots available for Tomorrow 2-4pm", status.NotificationMessage)
	require.True(t, status.HasDuration())
	assert.Equal(t, 7*time.Minute, *status.TimeSinceTransition)
	assert.True(t, task.CurrentlyHasSlot())

	require.Len(t, repo.saved, 1)
	saved := repo.saved[0]
	assert.Equal(t, "costco", saved.Target)
	assert.Equal(t, entity.StateHasSlot, saved.State)
	assert.Equal(t, 7*time.Minute, saved.PreviousFor)
	assert.Equal(t, clock.Now(), saved.TransitionedAt)
	assert.Equal(t, "Spots available for Tomorrow 2-4pm", saved.Message)

	snap := task.Snapshot()
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Equal(t, "Spots available for Tomorrow 2-4pm", snap.LastMessage)
	require.NotNil(t, snap.LastTransitionAt)
	assert.Equal(t, clock.Now(), *snap.LastTransitionAt)
}

func TestMonitorTask_PersistFailureDoesNotFailCycle(t *testing.T) {
	probe := newScriptedProbe(entity.Unavailable(), entity.Available("today"))
	repo := &memoryTransitions{err: errors.New("db down")}
	task := NewMonitorTask("hmart", probe, nil, WithTransitionRepository(repo))

	_, _ = task.RunOnce(context.Background())
	status, _ := task.RunOnce(context.Background())

	require.NotNil(t, status)
	assert.True(t, status.IsEdgeTransition)
	assert.True(t, task.CurrentlyHasSlot())
}

func TestMonitorTask_NoTransitionSavedWithoutEdge(t *testing.T) {
	probe := newScriptedProbe(entity.Unavailable())
	repo := &memoryTransitions{}
	task := NewMonitorTask("raleys", probe, nil, WithTransitionRepository(repo))

	for i := 0; i < 3; i++ {
		status, _ := task.RunOnce(context.Background())
		require.NotNil(t, status)
		assert.False(t, status.IsEdgeTransition)
	}
	assert.Empty(t, repo.saved)
}

func TestMonitorTask_CloseClosesProbe(t *testing.T) {
	probe := newScriptedProbe()
	task := NewMonitorTask("weee", probe, nil)

	require.NoError(t, task.Close())
	assert.True(t, probe.Closed())
}
