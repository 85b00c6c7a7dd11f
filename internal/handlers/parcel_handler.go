package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/acreage/internal/errors"
	"github.com/stwalsh4118/acreage/internal/middleware"
	"github.com/stwalsh4118/acreage/internal/models"
	"github.com/stwalsh4118/acreage/internal/services"
)

// ParcelHandler handles parcel-related HTTP requests.
type ParcelHandler struct {
	service services.ParcelService
}

// NewParcelHandler creates a new ParcelHandler instance.
func NewParcelHandler(service services.ParcelService) *ParcelHandler {
	return &ParcelHandler{
		service: service,
	}
}

// RegionQuery holds the optional region overrides for a parcel lookup.
type RegionQuery struct {
	State  string `form:"state" binding:"omitempty,len=2,alpha"`
	County string `form:"county" binding:"omitempty,max=64"`
}

// ParcelResponse represents the response for the parcel endpoint.
type ParcelResponse struct {
	Parcel *models.PropertyRecord `json:"parcel"`
}

// Get handles GET /api/v1/parcels/:parcelId.
// It returns the normalized property record for the parcel.
func (h *ParcelHandler) Get(c *gin.Context) {
	var query RegionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	parcelID := c.Param("parcelId")
	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing parcel request", map[string]interface{}{
			"parcel_id": parcelID,
			"state":     query.State,
			"county":    query.County,
		})
	}

	record, err := h.service.FetchPropertyRecord(c.Request.Context(), parcelID, query.State, query.County)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			apierrors.BadRequest(c, err.Error(), nil)
		case errors.Is(err, services.ErrParcelNotFound):
			apierrors.NotFound(c, "No parcel found with this identifier")
		case errors.Is(err, services.ErrInvalidParcel):
			apierrors.Upstream(c, "Parcel record has no usable acreage", err)
		default:
			apierrors.Upstream(c, "Failed to fetch parcel data", err)
		}
		return
	}

	c.JSON(http.StatusOK, ParcelResponse{Parcel: record})
}
