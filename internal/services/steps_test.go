package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/acreage/internal/models"
)

func TestNewStepTracker_AllPending(t *testing.T) {
	tracker := NewStepTracker("run-1")
	snap := tracker.Snapshot()

	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, models.RunPending, snap.Status)
	require.Len(t, snap.Steps, len(models.StepOrder))
	for i, step := range snap.Steps {
		assert.Equal(t, models.StepOrder[i], step.ID)
		assert.Equal(t, models.StepPending, step.Status)
		assert.NotEmpty(t, step.Label)
		assert.NotEmpty(t, step.Description)
	}
}

func TestStepTracker_HappyPath(t *testing.T) {
	tracker := NewStepTracker("run-1")
	var snaps []models.RunSnapshot
	tracker.Subscribe(func(s models.RunSnapshot) { snaps = append(snaps, s) })

	require.NoError(t, tracker.Start())
	tracker.MarkCharged()
	for _, id := range models.StepOrder {
		require.NoError(t, tracker.Begin(id))
		require.NoError(t, tracker.Complete(id, string(id)))
	}
	require.NoError(t, tracker.Finish())

	// start + charged + 2 per step + finish
	assert.Len(t, snaps, 2+2*len(models.StepOrder)+1)

	final := snaps[len(snaps)-1]
	assert.Equal(t, models.RunCompleted, final.Status)
	assert.True(t, final.Charged)
	for _, step := range final.Steps {
		assert.Equal(t, models.StepCompleted, step.Status)
		assert.Equal(t, string(step.ID), step.Result)
	}
}

func TestStepTracker_SnapshotsAreImmutable(t *testing.T) {
	tracker := NewStepTracker("run-1")
	require.NoError(t, tracker.Start())

	before := tracker.Snapshot()
	require.NoError(t, tracker.Begin(models.StepPropertyData))

	assert.Equal(t, models.StepPending, before.Steps[0].Status)
	assert.Equal(t, models.StepProcessing, tracker.Snapshot().Steps[0].Status)
}

func TestStepTracker_RejectsOutOfOrder(t *testing.T) {
	tracker := NewStepTracker("run-1")

	// Not started
	assert.ErrorIs(t, tracker.Begin(models.StepPropertyData), ErrInvalidTransition)

	require.NoError(t, tracker.Start())
	assert.ErrorIs(t, tracker.Start(), ErrInvalidTransition)

	// Skipping ahead
	assert.ErrorIs(t, tracker.Begin(models.StepSatelliteImagery), ErrInvalidTransition)

	// Completing without processing
	assert.ErrorIs(t, tracker.Complete(models.StepPropertyData, nil), ErrInvalidTransition)
	assert.ErrorIs(t, tracker.Fail(models.StepPropertyData, errors.New("x")), ErrInvalidTransition)

	// Two steps processing at once
	require.NoError(t, tracker.Begin(models.StepPropertyData))
	assert.ErrorIs(t, tracker.Begin(models.StepSatelliteImagery), ErrInvalidTransition)

	// Beginning a step twice
	require.NoError(t, tracker.Complete(models.StepPropertyData, nil))
	assert.ErrorIs(t, tracker.Begin(models.StepPropertyData), ErrInvalidTransition)

	// Unknown step
	assert.ErrorIs(t, tracker.Begin("uploading"), ErrInvalidTransition)

	// Finish with steps outstanding
	assert.ErrorIs(t, tracker.Finish(), ErrInvalidTransition)
}

func TestStepTracker_Fail(t *testing.T) {
	tracker := NewStepTracker("run-1")
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.Begin(models.StepPropertyData))

	require.NoError(t, tracker.Fail(models.StepPropertyData, ErrParcelNotFound))

	snap := tracker.Snapshot()
	assert.Equal(t, models.RunFailed, snap.Status)
	assert.Equal(t, models.StepPropertyData, snap.FailedStep)
	assert.Equal(t, ErrParcelNotFound.Error(), snap.Error)
	assert.Equal(t, models.StepError, snap.Steps[0].Status)

	// A failed run accepts no further steps
	assert.ErrorIs(t, tracker.Begin(models.StepSatelliteImagery), ErrInvalidTransition)
}

func TestStepTracker_Abort(t *testing.T) {
	tracker := NewStepTracker("run-1")
	tracker.Abort(models.RunPurchaseRequired, ErrPurchaseRequired)

	snap := tracker.Snapshot()
	assert.Equal(t, models.RunPurchaseRequired, snap.Status)
	assert.Equal(t, ErrPurchaseRequired.Error(), snap.Error)
	for _, step := range snap.Steps {
		assert.Equal(t, models.StepPending, step.Status)
	}
}

func TestStepTracker_FailRun(t *testing.T) {
	tracker := NewStepTracker("run-1")
	require.NoError(t, tracker.Start())
	for _, id := range models.StepOrder {
		require.NoError(t, tracker.Begin(id))
		require.NoError(t, tracker.Complete(id, nil))
	}

	require.NoError(t, tracker.FailRun(ErrSubmitFailed))

	snap := tracker.Snapshot()
	assert.Equal(t, models.RunFailed, snap.Status)
	assert.Empty(t, snap.FailedStep)
	assert.Equal(t, ErrSubmitFailed.Error(), snap.Error)
	for _, step := range snap.Steps {
		assert.Equal(t, models.StepCompleted, step.Status)
	}

	// A failed run cannot be completed or failed again
	assert.ErrorIs(t, tracker.Finish(), ErrInvalidTransition)
	assert.ErrorIs(t, tracker.FailRun(ErrSubmitFailed), ErrInvalidTransition)
	assert.Equal(t, models.RunFailed, tracker.Snapshot().Status)
}

func TestStepTracker_FailRun_RejectsProcessingStep(t *testing.T) {
	tracker := NewStepTracker("run-1")
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.Begin(models.StepPropertyData))

	assert.ErrorIs(t, tracker.FailRun(errors.New("boom")), ErrInvalidTransition)
	assert.Equal(t, models.RunRunning, tracker.Snapshot().Status)
}
