package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/acreage/internal/errors"
	"github.com/stwalsh4118/acreage/internal/middleware"
	"github.com/stwalsh4118/acreage/internal/models"
	"github.com/stwalsh4118/acreage/internal/repository"
	"github.com/stwalsh4118/acreage/internal/services"
)

// SSE event names used by the streaming endpoint.
const (
	EventSnapshot = "snapshot"
	EventListing  = "listing"
	EventError    = "error"
)

// ListingHandler runs listing generation for signed-in users.
type ListingHandler struct {
	service  services.GenerationService
	listings repository.ListingRepository
}

// NewListingHandler creates a new ListingHandler. listings may be nil, in
// which case generated listings are returned but not stored.
func NewListingHandler(service services.GenerationService, listings repository.ListingRepository) *ListingHandler {
	return &ListingHandler{
		service:  service,
		listings: listings,
	}
}

// GenerateRequest is the body of both generate endpoints.
type GenerateRequest struct {
	ParcelID string `json:"parcel_id" binding:"required,max=64"`
	State    string `json:"state" binding:"omitempty,len=2,alpha"`
	County   string `json:"county" binding:"omitempty,max=64"`
}

// GenerateResponse is the response for a successful run.
type GenerateResponse struct {
	Listing *models.CompositeListing `json:"listing"`
	Run     models.RunSnapshot       `json:"run"`
}

// ListQuery holds the paging parameters of the listing history endpoint.
type ListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// ListResponse is the response for GET /api/v1/listings.
type ListResponse struct {
	Listings []models.ListingSummary `json:"listings"`
	Count    int                     `json:"count"`
}

// runFailure is the error envelope a failed run maps to.
type runFailure struct {
	status  int
	code    string
	message string
	details map[string]interface{}
}

// lastSnapshot keeps the most recent snapshot published by a run.
type lastSnapshot struct {
	mu   sync.Mutex
	snap models.RunSnapshot
}

func (l *lastSnapshot) observe(snap models.RunSnapshot) {
	l.mu.Lock()
	l.snap = snap
	l.mu.Unlock()
}

func (l *lastSnapshot) get() models.RunSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Generate handles POST /api/v1/listings/generate.
// The response is sent once the run reaches a terminal state.
func (h *ListingHandler) Generate(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	last := &lastSnapshot{}
	listing, err := h.service.Run(c.Request.Context(), req, h.submitter(req.UserID), last.observe)
	if err != nil {
		f := classifyRunError(err, last.get().RunID)
		switch f.code {
		case apierrors.ErrGenerationFailed:
			apierrors.GenerationFailed(c, f.status, f.message, f.details, err)
		case apierrors.ErrInsufficientCredits:
			apierrors.InsufficientCredits(c, f.message, f.details)
		default:
			apierrors.Respond(c, f.status, f.code, f.message, f.details, err)
		}
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{Listing: listing, Run: last.get()})
}

// Stream handles POST /api/v1/listings/generate/stream.
// Every run transition is sent as a "snapshot" event, followed by a final
// "listing" or "error" event.
func (h *ListingHandler) Stream(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Snapshots are published synchronously by the run, so writes never overlap.
	last := &lastSnapshot{}
	observe := func(snap models.RunSnapshot) {
		last.observe(snap)
		c.SSEvent(EventSnapshot, snap)
		c.Writer.Flush()
	}

	listing, err := h.service.Run(c.Request.Context(), req, h.submitter(req.UserID), observe)
	if err != nil {
		f := classifyRunError(err, last.get().RunID)
		if log := middleware.GetLogger(c); log != nil {
			log.Warn("Streamed generation failed", map[string]interface{}{
				"code":  f.code,
				"error": err.Error(),
			})
		}
		c.SSEvent(EventError, apierrors.ErrorDetail{
			Code:      f.code,
			Message:   f.message,
			Details:   f.details,
			RequestID: middleware.GetRequestID(c),
		})
		c.Writer.Flush()
		return
	}

	c.SSEvent(EventListing, GenerateResponse{Listing: listing, Run: last.get()})
	c.Writer.Flush()
}

// List handles GET /api/v1/listings.
// It returns the caller's stored listings, newest first.
func (h *ListingHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apierrors.Unauthorized(c, "Sign in to view your listings")
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	if h.listings == nil {
		apierrors.InternalServerError(c, "Listing history is not available", errors.New("listing repository not configured"))
		return
	}

	listings, err := h.listings.ListByUser(c.Request.Context(), userID, query.Limit)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load listings", err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Listings: listings,
		Count:    len(listings),
	})
}

// Get handles GET /api/v1/listings/:runId.
// Listings owned by other users are reported as not found.
func (h *ListingHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apierrors.Unauthorized(c, "Sign in to view your listings")
		return
	}

	if h.listings == nil {
		apierrors.InternalServerError(c, "Listing history is not available", errors.New("listing repository not configured"))
		return
	}

	runID := c.Param("runId")
	listing, err := h.listings.Get(c.Request.Context(), userID, runID)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load listing", err)
		return
	}
	if listing == nil {
		apierrors.NotFound(c, "No listing found for this run")
		return
	}

	c.JSON(http.StatusOK, listing)
}

// bind validates the request and resolves the caller. It writes the error
// response itself and reports whether the handler should continue.
func (h *ListingHandler) bind(c *gin.Context) (services.GenerationRequest, bool) {
	var body GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return services.GenerationRequest{}, false
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return services.GenerationRequest{}, false
	}

	userID := middleware.GetUserID(c)
	if userID == "" {
		apierrors.Unauthorized(c, "Sign in to generate listings")
		return services.GenerationRequest{}, false
	}

	return services.GenerationRequest{
		UserID:   userID,
		ParcelID: body.ParcelID,
		State:    body.State,
		County:   body.County,
	}, true
}

// submitter returns the sink that stores a finished listing for userID.
func (h *ListingHandler) submitter(userID string) services.SubmitFunc {
	if h.listings == nil {
		return nil
	}
	return func(ctx context.Context, listing *models.CompositeListing) error {
		return h.listings.Save(ctx, userID, listing)
	}
}

// classifyRunError maps a run error to the response the client sees.
func classifyRunError(err error, runID string) runFailure {
	var runErr *services.RunError
	switch {
	case errors.As(err, &runErr):
		details := map[string]interface{}{
			"charged": runErr.Charged,
		}
		if runErr.Step != "" {
			details["step"] = string(runErr.Step)
		}
		if runID != "" {
			details["run_id"] = runID
		}
		if errors.Is(err, services.ErrParcelNotFound) ||
			errors.Is(err, services.ErrInvalidParcel) ||
			errors.Is(err, services.ErrValidation) {
			return runFailure{http.StatusUnprocessableEntity, apierrors.ErrGenerationFailed, runErr.Err.Error(), details}
		}
		return runFailure{http.StatusInternalServerError, apierrors.ErrGenerationFailed, "Listing generation failed", details}
	case errors.Is(err, services.ErrAuthentication):
		return runFailure{http.StatusUnauthorized, apierrors.ErrUnauthorized, "Sign in to generate listings", nil}
	case errors.Is(err, services.ErrPurchaseRequired), errors.Is(err, services.ErrInsufficientCredits):
		return runFailure{http.StatusPaymentRequired, apierrors.ErrInsufficientCredits, "No credits remaining, purchase more to generate listings", map[string]interface{}{
			"purchase_required": true,
		}}
	case errors.Is(err, services.ErrValidation):
		return runFailure{http.StatusBadRequest, apierrors.ErrBadRequest, err.Error(), nil}
	default:
		return runFailure{http.StatusBadGateway, apierrors.ErrUpstream, "Failed to reach the credit service", nil}
	}
}
