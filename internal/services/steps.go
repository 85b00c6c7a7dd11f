package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stwalsh4118/acreage/internal/models"
)

// ErrInvalidTransition is returned when a step or run transition is not
// allowed from its current state.
var ErrInvalidTransition = errors.New("invalid step transition")

// stepDefinitions are the display labels for each pipeline stage.
var stepDefinitions = map[models.StepID]struct {
	label       string
	description string
}{
	models.StepPropertyData:      {"Property Data", "Fetching parcel records and boundaries"},
	models.StepSatelliteImagery:  {"Satellite Imagery", "Generating aerial views of the parcel"},
	models.StepContentGeneration: {"Content Generation", "Writing the listing title and description"},
	models.StepPriceAnalysis:     {"Price Analysis", "Estimating a list price"},
	models.StepBuyerMatching:     {"Buyer Matching", "Building a buyer outreach campaign"},
}

// StepTracker is the state machine for one generation run. Every transition
// publishes an immutable RunSnapshot to subscribers.
//
// Steps move pending -> processing -> completed|error, in StepOrder, with at
// most one step processing at a time.
type StepTracker struct {
	mu          sync.Mutex
	runID       string
	status      models.RunStatus
	failedStep  models.StepID
	errMsg      string
	charged     bool
	steps       []models.GenerationStep
	index       map[models.StepID]int
	subscribers []func(models.RunSnapshot)
}

// NewStepTracker creates a tracker with every step pending.
func NewStepTracker(runID string) *StepTracker {
	t := &StepTracker{
		runID:  runID,
		status: models.RunPending,
		steps:  make([]models.GenerationStep, len(models.StepOrder)),
		index:  make(map[models.StepID]int, len(models.StepOrder)),
	}
	for i, id := range models.StepOrder {
		def := stepDefinitions[id]
		t.steps[i] = models.GenerationStep{
			ID:          id,
			Label:       def.label,
			Description: def.description,
			Status:      models.StepPending,
		}
		t.index[id] = i
	}
	return t
}

// Subscribe registers fn to receive a snapshot after every transition.
// Subscribers are called synchronously, in transition order, and must not
// call back into the tracker.
func (t *StepTracker) Subscribe(fn func(models.RunSnapshot)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, fn)
}

// Snapshot returns a copy of the current run state.
func (t *StepTracker) Snapshot() models.RunSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Start moves the run from pending to running.
func (t *StepTracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != models.RunPending {
		return fmt.Errorf("%w: run is %s", ErrInvalidTransition, t.status)
	}
	t.status = models.RunRunning
	t.publishLocked()
	return nil
}

// MarkCharged records that a credit has been consumed for this run.
func (t *StepTracker) MarkCharged() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.charged = true
	t.publishLocked()
}

// Begin moves a step to processing. The previous step must be completed and
// no other step may be processing.
func (t *StepTracker) Begin(id models.StepID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.lookupLocked(id)
	if err != nil {
		return err
	}
	if t.status != models.RunRunning {
		return fmt.Errorf("%w: run is %s", ErrInvalidTransition, t.status)
	}
	if t.steps[i].Status != models.StepPending {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, t.steps[i].Status)
	}
	if i > 0 && t.steps[i-1].Status != models.StepCompleted {
		return fmt.Errorf("%w: %s before %s completed", ErrInvalidTransition, id, t.steps[i-1].ID)
	}

	t.steps[i].Status = models.StepProcessing
	t.publishLocked()
	return nil
}

// Complete moves a processing step to completed with its result.
func (t *StepTracker) Complete(id models.StepID, result interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.lookupLocked(id)
	if err != nil {
		return err
	}
	if t.steps[i].Status != models.StepProcessing {
		return fmt.Errorf("%w: cannot complete %s from %s", ErrInvalidTransition, id, t.steps[i].Status)
	}

	t.steps[i].Status = models.StepCompleted
	t.steps[i].Result = result
	t.publishLocked()
	return nil
}

// Fail moves a processing step to error and fails the run.
func (t *StepTracker) Fail(id models.StepID, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.lookupLocked(id)
	if err != nil {
		return err
	}
	if t.steps[i].Status != models.StepProcessing {
		return fmt.Errorf("%w: cannot fail %s from %s", ErrInvalidTransition, id, t.steps[i].Status)
	}

	t.steps[i].Status = models.StepError
	t.steps[i].Error = errorMessage(cause)
	t.status = models.RunFailed
	t.failedStep = id
	t.errMsg = t.steps[i].Error
	t.publishLocked()
	return nil
}

// Abort ends a run that never reached its first step, e.g. when the credit
// gate refuses it. Steps stay pending.
func (t *StepTracker) Abort(status models.RunStatus, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = status
	t.errMsg = errorMessage(cause)
	t.publishLocked()
}

// FailRun fails a running run without attributing the failure to a step,
// e.g. when the finished listing could not be handed over.
func (t *StepTracker) FailRun(cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != models.RunRunning {
		return fmt.Errorf("%w: run is %s", ErrInvalidTransition, t.status)
	}
	for _, step := range t.steps {
		if step.Status == models.StepProcessing {
			return fmt.Errorf("%w: %s is processing", ErrInvalidTransition, step.ID)
		}
	}

	t.status = models.RunFailed
	t.errMsg = errorMessage(cause)
	t.publishLocked()
	return nil
}

// Finish marks a running run completed. Every step must be completed.
func (t *StepTracker) Finish() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != models.RunRunning {
		return fmt.Errorf("%w: run is %s", ErrInvalidTransition, t.status)
	}
	for _, step := range t.steps {
		if step.Status != models.StepCompleted {
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, step.ID, step.Status)
		}
	}
	t.status = models.RunCompleted
	t.publishLocked()
	return nil
}

func (t *StepTracker) lookupLocked(id models.StepID) (int, error) {
	i, ok := t.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, id)
	}
	return i, nil
}

func (t *StepTracker) snapshotLocked() models.RunSnapshot {
	steps := make([]models.GenerationStep, len(t.steps))
	copy(steps, t.steps)
	return models.RunSnapshot{
		RunID:      t.runID,
		Status:     t.status,
		FailedStep: t.failedStep,
		Error:      t.errMsg,
		Charged:    t.charged,
		Steps:      steps,
	}
}

func (t *StepTracker) publishLocked() {
	if len(t.subscribers) == 0 {
		return
	}
	snap := t.snapshotLocked()
	for _, fn := range t.subscribers {
		fn(snap)
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
