package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/acreage/internal/logger"
	"github.com/stwalsh4118/acreage/internal/middleware"
)

func init() {
	// Set Gin to test mode to suppress logs during tests
	gin.SetMode(gin.TestMode)
}

// setupTestContext creates a test Gin context with logger and request ID in context.
func setupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	c.Set(middleware.LoggerKey, logger.New("test"))
	c.Set(middleware.RequestIDKey, "test-request-id")
	return c, w
}

// parseErrorResponse parses the JSON response into an ErrorResponse struct.
func parseErrorResponse(t *testing.T, body *bytes.Buffer) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &response), "Failed to parse error response JSON")
	return response
}

func TestResponses(t *testing.T) {
	details := map[string]interface{}{"step": "property-data", "charged": true}

	tests := []struct {
		name        string
		call        func(c *gin.Context)
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails bool
	}{
		{
			name:        "not found",
			call:        func(c *gin.Context) { NotFound(c, "Parcel not found") },
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrNotFound,
			wantMessage: "Parcel not found",
		},
		{
			name:        "bad request",
			call:        func(c *gin.Context) { BadRequest(c, "Invalid input", nil) },
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrBadRequest,
			wantMessage: "Invalid input",
		},
		{
			name:        "unauthorized",
			call:        func(c *gin.Context) { Unauthorized(c, "Sign in required") },
			wantStatus:  http.StatusUnauthorized,
			wantCode:    ErrUnauthorized,
			wantMessage: "Sign in required",
		},
		{
			name:        "insufficient credits",
			call:        func(c *gin.Context) { InsufficientCredits(c, "Purchase credits", map[string]interface{}{"balance": 0}) },
			wantStatus:  http.StatusPaymentRequired,
			wantCode:    ErrInsufficientCredits,
			wantMessage: "Purchase credits",
			wantDetails: true,
		},
		{
			name:        "generation failed",
			call:        func(c *gin.Context) { GenerationFailed(c, http.StatusInternalServerError, "Listing generation failed", details, errors.New("boom")) },
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrGenerationFailed,
			wantMessage: "Listing generation failed",
			wantDetails: true,
		},
		{
			name:        "upstream",
			call:        func(c *gin.Context) { Upstream(c, "Parcel registry unavailable", errors.New("dial tcp")) },
			wantStatus:  http.StatusBadGateway,
			wantCode:    ErrUpstream,
			wantMessage: "Parcel registry unavailable",
		},
		{
			name:        "internal",
			call:        func(c *gin.Context) { InternalServerError(c, "An unexpected error occurred", errors.New("db down")) },
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrInternalServer,
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTestContext()

			tt.call(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.True(t, c.IsAborted())

			response := parseErrorResponse(t, w.Body)
			assert.Equal(t, tt.wantCode, response.Error.Code)
			assert.Equal(t, tt.wantMessage, response.Error.Message)
			assert.Equal(t, "test-request-id", response.Error.RequestID)
			if tt.wantDetails {
				assert.NotEmpty(t, response.Error.Details)
			} else {
				assert.Nil(t, response.Error.Details)
			}
		})
	}
}

func TestBadRequest_WithDetails(t *testing.T) {
	c, w := setupTestContext()

	BadRequest(c, "Invalid input", map[string]interface{}{"field": "parcel_id"})

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, "parcel_id", response.Error.Details["field"])
}

func TestGenerationFailed_DoesNotLeakError(t *testing.T) {
	c, w := setupTestContext()

	GenerationFailed(c, http.StatusInternalServerError, "Listing generation failed", nil, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
}

func TestValidationError(t *testing.T) {
	c, w := setupTestContext()

	type TestStruct struct {
		ParcelID string `validate:"required"`
		State    string `validate:"omitempty,len=2,alpha"`
	}

	err := validator.New().Struct(TestStruct{State: "California"})
	require.Error(t, err, "Expected validation to fail")

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	ValidationError(c, validationErrors)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrValidation, response.Error.Code)
	assert.Equal(t, "Validation failed for one or more fields", response.Error.Message)
	assert.Equal(t, "This field is required", response.Error.Details["ParcelID"])
	assert.Equal(t, "Must have length of 2", response.Error.Details["State"])
}

func TestFormatValidationError(t *testing.T) {
	tests := []struct {
		tag      string
		param    string
		expected string
	}{
		{"required", "", "This field is required"},
		{"min", "5", "Value is too short or small (minimum: 5)"},
		{"max", "100", "Value is too long or large (maximum: 100)"},
		{"len", "2", "Must have length of 2"},
		{"alpha", "", "Must contain letters only"},
		{"oneof", "red blue", "Must be one of: red blue"},
		{"url", "", "Must be a valid URL"},
		{"http_url", "", "Must be a valid URL"},
		{"uuid", "", "Must be a valid UUID"},
		{"unknown_tag", "", "Validation failed for tag: unknown_tag"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			result := formatValidationError(&mockFieldError{tag: tt.tag, param: tt.param})
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestErrorResponseWithoutContext(t *testing.T) {
	// Error helpers work without logger or request ID in context
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	NotFound(c, "Resource not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrNotFound, response.Error.Code)
	assert.Empty(t, response.Error.RequestID)
}

// mockFieldError is a mock implementation of validator.FieldError for testing.
type mockFieldError struct {
	tag   string
	param string
}

func (m *mockFieldError) Tag() string                    { return m.tag }
func (m *mockFieldError) ActualTag() string              { return m.tag }
func (m *mockFieldError) Namespace() string              { return "" }
func (m *mockFieldError) StructNamespace() string        { return "" }
func (m *mockFieldError) Field() string                  { return "TestField" }
func (m *mockFieldError) StructField() string            { return "TestField" }
func (m *mockFieldError) Value() interface{}             { return nil }
func (m *mockFieldError) Param() string                  { return m.param }
func (m *mockFieldError) Kind() reflect.Kind             { return reflect.String }
func (m *mockFieldError) Type() reflect.Type             { return nil }
func (m *mockFieldError) Translate(ut.Translator) string { return "" }
func (m *mockFieldError) Error() string                  { return "" }
