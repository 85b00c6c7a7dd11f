package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/metrics"
	"github.com/stwalsh4118/acreage/internal/models"
)

// Orchestrator errors
var (
	ErrPurchaseRequired = errors.New("no credits available, purchase required")
	ErrUnexpected       = errors.New("unexpected error")
	ErrStepTimeout      = errors.New("step timed out")
	ErrSubmitFailed     = errors.New("listing submission failed")
)

// stepGrace is how long a timed-out step may take to return after its
// context expires before it is abandoned.
const stepGrace = 2 * time.Second

// RunError reports a charged run that did not complete. Step is the failed
// pipeline step, or empty when every step completed and the listing could
// not be submitted.
type RunError struct {
	Step    models.StepID
	Charged bool
	Err     error
}

func (e *RunError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("generation failed after all steps: %v", e.Err)
	}
	return fmt.Sprintf("generation failed at %s: %v", e.Step, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// GenerationRequest identifies the parcel to list and the user paying for it.
type GenerationRequest struct {
	UserID   string
	ParcelID string
	State    string
	County   string
}

// SubmitFunc receives the assembled listing of a successful run.
type SubmitFunc func(ctx context.Context, listing *models.CompositeListing) error

// ObserveFunc receives a snapshot after every run transition.
type ObserveFunc func(models.RunSnapshot)

// GenerationService runs the listing pipeline.
type GenerationService interface {
	// Run executes the five pipeline steps in order for one parcel.
	//
	// Before any step runs, a blank parcel ID returns ErrValidation, a user
	// without credits gets ErrPurchaseRequired, and a failed credit consume
	// returns the credit gate's error. Once a credit is charged the run is no
	// longer cancellable and every failure is a *RunError with Charged set.
	// Each step and the submission are bounded by the step timeout.
	//
	// submit receives the listing after all five steps completed; the run is
	// completed only once submit returns nil.
	//
	// submit and observe may be nil.
	Run(ctx context.Context, req GenerationRequest, submit SubmitFunc, observe ObserveFunc) (*models.CompositeListing, error)
}

type generationService struct {
	parcels ParcelService
	imagery ImageryService
	content ContentService
	credits CreditService
	log     *logger.Logger

	stepTimeout time.Duration
	stepGrace   time.Duration
	newID       func() string
	now         func() time.Time
}

// NewGenerationService creates a GenerationService.
func NewGenerationService(
	parcels ParcelService,
	imagery ImageryService,
	content ContentService,
	credits CreditService,
	stepTimeout time.Duration,
	log *logger.Logger,
) GenerationService {
	return &generationService{
		parcels:     parcels,
		imagery:     imagery,
		content:     content,
		credits:     credits,
		log:         log,
		stepTimeout: stepTimeout,
		stepGrace:   stepGrace,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// stepFunc performs one pipeline step and returns its result.
type stepFunc func(ctx context.Context) (interface{}, error)

// runState accumulates step results for the final listing.
type runState struct {
	record   models.PropertyRecord
	images   models.ImageAnalysis
	content  models.ListingContent
	pricing  models.PricingAnalysis
	campaign models.CampaignAnalysis
}

func (s *generationService) Run(ctx context.Context, req GenerationRequest, submit SubmitFunc, observe ObserveFunc) (*models.CompositeListing, error) {
	runID := s.newID()
	log := s.log.With(logger.Fields{
		"run_id":    runID,
		"user_id":   req.UserID,
		"parcel_id": req.ParcelID,
	})

	tracker := NewStepTracker(runID)
	tracker.Subscribe(observe)

	if strings.TrimSpace(req.ParcelID) == "" {
		err := fmt.Errorf("%w: parcel identifier is required", ErrValidation)
		tracker.Abort(models.RunFailed, err)
		metrics.GenerationRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	if req.UserID == "" {
		tracker.Abort(models.RunFailed, ErrAuthentication)
		metrics.GenerationRuns.WithLabelValues("credit_error").Inc()
		return nil, ErrAuthentication
	}

	s.credits.GetBalance(ctx, req.UserID)
	if !s.credits.HasCredits(req.UserID) {
		log.Info("Generation refused, no credits", nil)
		tracker.Abort(models.RunPurchaseRequired, ErrPurchaseRequired)
		metrics.GenerationRuns.WithLabelValues("purchase_required").Inc()
		return nil, ErrPurchaseRequired
	}

	if err := tracker.Start(); err != nil {
		return nil, err
	}

	if err := s.credits.ConsumeCredit(ctx, req.UserID, req.ParcelID); err != nil {
		status := models.RunFailed
		if errors.Is(err, ErrInsufficientCredits) {
			status = models.RunPurchaseRequired
		}
		log.Warn("Credit consume failed, run aborted", logger.Fields{"error": err.Error()})
		tracker.Abort(status, err)
		metrics.GenerationRuns.WithLabelValues("credit_error").Inc()
		return nil, err
	}
	tracker.MarkCharged()

	// A charged run always runs to a terminal state
	ctx = context.WithoutCancel(ctx)

	state := &runState{}
	steps := []struct {
		id models.StepID
		fn stepFunc
	}{
		{models.StepPropertyData, func(ctx context.Context) (interface{}, error) {
			record, err := s.parcels.FetchPropertyRecord(ctx, req.ParcelID, req.State, req.County)
			if err != nil {
				return nil, err
			}
			state.record = *record
			return state.record, nil
		}},
		{models.StepSatelliteImagery, func(ctx context.Context) (interface{}, error) {
			state.images = s.imagery.Analyze(ctx, state.record)
			return state.images, nil
		}},
		{models.StepContentGeneration, func(ctx context.Context) (interface{}, error) {
			state.content = s.content.GenerateListingContent(ctx, state.record)
			return state.content, nil
		}},
		{models.StepPriceAnalysis, func(ctx context.Context) (interface{}, error) {
			state.pricing = EstimatePrice(state.record.Acreage)
			return state.pricing, nil
		}},
		{models.StepBuyerMatching, func(ctx context.Context) (interface{}, error) {
			state.campaign = BuildCampaign(state.record)
			return state.campaign, nil
		}},
	}

	for _, step := range steps {
		if err := s.runStep(ctx, tracker, step.id, step.fn); err != nil {
			log.Error("Generation step failed", err, logger.Fields{"step": string(step.id)})
			metrics.GenerationRuns.WithLabelValues("failed").Inc()
			return nil, &RunError{Step: step.id, Charged: true, Err: err}
		}
	}

	listing := s.assemble(runID, state)
	if submit != nil {
		_, err := s.bounded(ctx, "submit", func(ctx context.Context) (interface{}, error) {
			return nil, submit(ctx, listing)
		})
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSubmitFailed, err)
			log.Error("Listing submission failed", err, nil)
			if failErr := tracker.FailRun(err); failErr != nil {
				log.Error("Failed to record run failure", failErr, nil)
			}
			metrics.GenerationRuns.WithLabelValues("failed").Inc()
			return nil, &RunError{Charged: true, Err: err}
		}
	}

	if err := tracker.Finish(); err != nil {
		return nil, &RunError{Step: models.StepBuyerMatching, Charged: true, Err: err}
	}

	metrics.GenerationRuns.WithLabelValues("completed").Inc()
	log.Info("Generation completed", logger.Fields{
		"price": listing.Price,
		"title": listing.Title,
	})

	return listing, nil
}

// runStep drives one step through processing to completed or error.
func (s *generationService) runStep(ctx context.Context, tracker *StepTracker, id models.StepID, fn stepFunc) error {
	if err := tracker.Begin(id); err != nil {
		return err
	}

	started := s.now()
	result, err := s.bounded(ctx, string(id), fn)

	status := models.StepCompleted
	if err != nil {
		status = models.StepError
		if failErr := tracker.Fail(id, err); failErr != nil {
			s.log.Error("Failed to record step failure", failErr, logger.Fields{"step": string(id)})
		}
	} else if err = tracker.Complete(id, result); err != nil {
		status = models.StepError
	}

	metrics.StepDuration.WithLabelValues(string(id), string(status)).Observe(s.now().Sub(started).Seconds())
	return err
}

// bounded runs fn under the step timeout. fn sees a context that expires
// after stepTimeout; if it still has not returned stepGrace later it is
// abandoned and ErrStepTimeout is returned. A panic in fn is reported as
// ErrUnexpected.
func (s *generationService) bounded(ctx context.Context, name string, fn stepFunc) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrUnexpected, r)}
			}
		}()
		result, err := fn(ctx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
	}

	grace := time.NewTimer(s.stepGrace)
	defer grace.Stop()

	select {
	case out := <-done:
		return out.result, out.err
	case <-grace.C:
		return nil, fmt.Errorf("%w: %s did not finish within %s", ErrStepTimeout, name, s.stepTimeout)
	}
}

// assemble builds the CompositeListing from the accumulated step results.
func (s *generationService) assemble(runID string, state *runState) *models.CompositeListing {
	return &models.CompositeListing{
		PropertyRecord: state.record,
		GeneratedAt:    s.now().UTC(),
		RunID:          runID,
		Title:          state.content.Title,
		Description:    state.content.Description,
		Images:         state.images.Images,
		Price:          float64(state.pricing.EstimatedPrice),
		AIAnalysis: models.AIAnalysis{
			ImageAnalysis:     state.images,
			PricingAnalysis:   state.pricing,
			MarketingCampaign: state.campaign,
		},
	}
}
