package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/skein/internal/domain"
)

type errorEnvelope struct {
	Error struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Fields    map[string]string `json:"fields"`
		Line      *int              `json:"line"`
		Available *int32            `json:"available"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EGONE, http.StatusGone},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.ENOTIMPL, http.StatusNotImplemented},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found error",
			err:            domain.NotFound("order.get", "order", "ORD-1"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ENOTFOUND,
		},
		{
			name:           "invalid error",
			err:            domain.Invalid("inventory.adjust", "amount must not be negative"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.EINVALID,
		},
		{
			name:           "conflict error",
			err:            domain.Conflict("order.update_status", "order is already cancelled"),
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
		},
		{
			name:           "payment error",
			err:            domain.ErrPaymentNotConfirmed,
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   domain.EPAYMENT,
		},
		{
			name:           "plain error",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   domain.EINTERNAL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/test", nil), tt.err)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedCode, decodeEnvelope(t, rec).Error.Code)
		})
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.Internal(nil, "db.query", "failed to connect to database at 192.168.1.100:5432")
	ErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/test", nil), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An internal error occurred. Please try again later.", decodeEnvelope(t, rec).Error.Message)
}

func TestErrorResponse_StockNotRecorded(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &domain.StockNotRecordedError{OrderNumber: "ORD-20260309-7Q2K", Err: errors.New("commit failed")}
	ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.EINTERNAL, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "commit failed")
}

func TestErrorResponse_InsufficientStock(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &domain.InsufficientStockError{
		ProductID: uuid.New(),
		Title:     "Crew Tee",
		Requested: 3,
		Available: 1,
		Line:      2,
	}
	ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil), err)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.ECONFLICT, env.Error.Code)
	assert.Equal(t, "Only 1 of Crew Tee available", env.Error.Message)
	require.NotNil(t, env.Error.Line)
	require.NotNil(t, env.Error.Available)
	assert.Equal(t, 2, *env.Error.Line)
	assert.Equal(t, int32(1), *env.Error.Available)
}

func TestValidationErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()

	err := domain.NewValidationError("checkout.place", "customer_name", "is required")
	err = domain.AddFieldError(err, "customer_email", "must be a valid email address")

	ValidationErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/test", nil), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, domain.EINVALID, env.Error.Code)
	assert.Len(t, env.Error.Fields, 2)
	assert.Equal(t, "is required", env.Error.Fields["customer_name"])
	assert.Nil(t, env.Error.Line)
}

func TestValidationErrorResponse_NonValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/test", nil),
		domain.NotFound("product.get", "product", "123"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConvenienceResponses(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter, r *http.Request)
		status int
	}{
		{name: "NotFoundResponse", write: NotFoundResponse, status: http.StatusNotFound},
		{name: "UnauthorizedResponse", write: UnauthorizedResponse, status: http.StatusUnauthorized},
		{name: "ForbiddenResponse", write: ForbiddenResponse, status: http.StatusForbidden},
		{
			name: "InternalErrorResponse",
			write: func(w http.ResponseWriter, r *http.Request) {
				InternalErrorResponse(w, r, nil)
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
