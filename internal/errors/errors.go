// Package errors renders the API's JSON error envelope.
package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/acreage/internal/middleware"
)

// Error code constants for standardized error responses
const (
	ErrNotFound            = "NOT_FOUND"
	ErrBadRequest          = "BAD_REQUEST"
	ErrInternalServer      = "INTERNAL_SERVER_ERROR"
	ErrValidation          = "VALIDATION_ERROR"
	ErrUnauthorized        = "UNAUTHORIZED"
	ErrInsufficientCredits = "INSUFFICIENT_CREDITS"
	ErrGenerationFailed    = "GENERATION_FAILED"
	ErrUpstream            = "UPSTREAM_ERROR"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Respond logs at warn level for client errors and error level for server
// errors, then writes the envelope and aborts the chain.
func Respond(c *gin.Context, status int, code, message string, details map[string]interface{}, err error) {
	requestID := middleware.GetRequestID(c)

	if log := middleware.GetLogger(c); log != nil {
		fields := map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
		}
		if details != nil {
			fields["details"] = details
		}
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, fields)
		} else {
			if err != nil {
				fields["error"] = err.Error()
			}
			log.Warn("Request rejected", fields)
		}
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	Respond(c, http.StatusNotFound, ErrNotFound, message, nil, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	Respond(c, http.StatusBadRequest, ErrBadRequest, message, details, nil)
}

// Unauthorized returns a 401 response for requests that need a signed-in user.
func Unauthorized(c *gin.Context, message string) {
	Respond(c, http.StatusUnauthorized, ErrUnauthorized, message, nil, nil)
}

// InsufficientCredits returns a 402 Payment Required response. Clients use it
// to start the credit purchase flow instead of showing a generic failure.
func InsufficientCredits(c *gin.Context, message string, details map[string]interface{}) {
	Respond(c, http.StatusPaymentRequired, ErrInsufficientCredits, message, details, nil)
}

// GenerationFailed reports a listing run that failed at a step. details
// carries the failed step and whether a credit was charged. status is 422
// when the parcel itself was rejected and 500 otherwise.
func GenerationFailed(c *gin.Context, status int, message string, details map[string]interface{}, err error) {
	Respond(c, status, ErrGenerationFailed, message, details, err)
}

// Upstream returns a 502 Bad Gateway response when a remote provider failed.
// The provider's error is logged but not exposed to the client.
func Upstream(c *gin.Context, message string, err error) {
	Respond(c, http.StatusBadGateway, ErrUpstream, message, nil, err)
}

// InternalServerError returns a 500 Internal Server Error response.
// The actual error is logged and never exposed to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	Respond(c, http.StatusInternalServerError, ErrInternalServer, message, nil, err)
}

// ValidationError returns a 400 Bad Request error response with field-specific validation errors.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, err := range validationErrors {
		details[err.Field()] = formatValidationError(err)
	}

	Respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details, nil)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "len":
		return "Must have length of " + err.Param()
	case "alpha":
		return "Must contain letters only"
	case "oneof":
		return "Must be one of: " + err.Param()
	case "url", "http_url":
		return "Must be a valid URL"
	case "uuid":
		return "Must be a valid UUID"
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
