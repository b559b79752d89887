package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dukerupert/skein/internal/domain"
	"github.com/dukerupert/skein/internal/middleware"
	"github.com/dukerupert/skein/internal/telemetry"
)

// ============================================================================
// ERROR RESPONSES
// ============================================================================
//
// Every error leaves the API as
//
//	{"error": {"code": "...", "message": "...", ...}}
//
// Validation failures add "fields"; stock shortfalls add "line" and
// "available" so the storefront can point at the offending cart line.

type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Line      *int              `json:"line,omitempty"`
	Available *int32            `json:"available,omitempty"`
}

// ErrorResponse maps err to a status code and writes the JSON error body.
// Internal errors are logged with full detail and reported to Sentry; the
// caller only sees a generic message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = domain.Internal(nil, "", "unknown error")
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	body := errorBody{
		Code:    code,
		Message: domain.ErrorMessage(err),
		Fields:  domain.GetValidationFields(err),
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		body.Line = &stockErr.Line
		body.Available = &stockErr.Available
	}

	logError(r, err, code, status)

	if status >= http.StatusInternalServerError {
		extras := map[string]any{
			"path":   r.URL.Path,
			"method": r.Method,
			"op":     domain.ErrorOp(err),
		}
		var notRecorded *domain.StockNotRecordedError
		if errors.As(err, &notRecorded) {
			extras["order_number"] = notRecorded.OrderNumber
			extras["needs_reconciliation"] = true
		}
		telemetry.CaptureErrorFromContext(r.Context(), err, extras)
	}

	writeJSON(w, status, map[string]errorBody{"error": body})
}

// ValidationErrorResponse writes a 400 carrying per-field messages. Errors
// that are not validation failures get their usual status.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, err)
}

// NotFoundResponse writes a generic 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, &domain.Error{Code: domain.ENOTFOUND, Message: "Not found"})
}

// UnauthorizedResponse writes a generic 401.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Unauthorized("", "Authentication required"))
}

// ForbiddenResponse writes a generic 403.
func ForbiddenResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Forbidden("", "You don't have permission to access this resource"))
}

// InternalErrorResponse writes a 500, wrapping err so its detail stays in
// the logs.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "internal error"))
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EGONE:
		return http.StatusGone
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	case domain.EMETHOD:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func logError(r *http.Request, err error, code string, status int) {
	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}

	switch {
	case status >= 500:
		logger.Error("request failed", attrs...)
	case status == http.StatusConflict:
		logger.Warn("request conflict", attrs...)
	default:
		logger.Info("request rejected", attrs...)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
