package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/acreage/internal/errors"
	"github.com/stwalsh4118/acreage/internal/middleware"
	"github.com/stwalsh4118/acreage/internal/services"
)

// CreditHandler exposes the credit gate to signed-in users.
type CreditHandler struct {
	service services.CreditService
}

// NewCreditHandler creates a new CreditHandler instance.
func NewCreditHandler(service services.CreditService) *CreditHandler {
	return &CreditHandler{service: service}
}

// BalanceResponse is the response for GET /api/v1/credits.
type BalanceResponse struct {
	Balance    int  `json:"balance"`
	HasCredits bool `json:"has_credits"`
}

// CheckoutRequest is the body of POST /api/v1/credits/checkout.
type CheckoutRequest struct {
	SuccessURL string `json:"success_url" binding:"required,http_url"`
	CancelURL  string `json:"cancel_url" binding:"required,http_url"`
}

// CheckoutResponse carries the URL the client should redirect to.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// Balance handles GET /api/v1/credits.
func (h *CreditHandler) Balance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apierrors.Unauthorized(c, "Sign in to view your credits")
		return
	}

	balance := h.service.GetBalance(c.Request.Context(), userID)
	c.JSON(http.StatusOK, BalanceResponse{
		Balance:    balance,
		HasCredits: h.service.HasCredits(userID),
	})
}

// Checkout handles POST /api/v1/credits/checkout.
func (h *CreditHandler) Checkout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apierrors.Unauthorized(c, "Sign in to purchase credits")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	url, err := h.service.StartCheckout(c.Request.Context(), userID, req.SuccessURL, req.CancelURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAuthentication):
			apierrors.Unauthorized(c, "Sign in to purchase credits")
		case errors.Is(err, services.ErrValidation):
			apierrors.BadRequest(c, err.Error(), nil)
		case errors.Is(err, services.ErrCheckoutUnavailable):
			apierrors.InternalServerError(c, "Checkout is not available", err)
		default:
			apierrors.Upstream(c, "Failed to start checkout", err)
		}
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{URL: url})
}
