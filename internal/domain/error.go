package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Application error codes.
// Handlers map these to HTTP status codes.
const (
	ECONFLICT     = "conflict"         // 409 - state conflict (stock exhausted, illegal transition)
	EINTERNAL     = "internal"         // 500 - details hidden from callers
	EINVALID      = "invalid"          // 400 - bad input
	ENOTFOUND     = "not_found"        // 404
	EUNAUTHORIZED = "unauthorized"     // 401
	EFORBIDDEN    = "forbidden"        // 403
	ENOTIMPL      = "not_implemented"  // 501
	ERATELIMIT    = "rate_limit"       // 429
	EPAYMENT      = "payment_required" // 402 - payment not confirmed
	EGONE         = "gone"             // 410
	ETOOLARGE     = "too_large"        // 413
	EMETHOD       = "method_not_allowed"
)

const internalMessage = "An internal error occurred. Please try again later."

// Error is the application error carried from services to handlers.
type Error struct {
	// Code is a machine-readable error code (EINVALID, ENOTFOUND, ...).
	Code string

	// Message is safe to show to users.
	Message string

	// Op names the operation that failed (e.g. "checkout.place_order").
	// Logged, never shown to users.
	Op string

	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// coder is implemented by error types outside *Error that still carry a code.
type coder interface {
	ErrorCode() string
}

// messenger is implemented by error types that carry their own user-facing message.
type messenger interface {
	ErrorMessage() string
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for errors that carry no code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}

	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}

	return EINTERNAL
}

// ErrorMessage extracts a user-facing message from an error.
// Internal errors get a generic message so details never leak.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return internalMessage
		}
		return e.Message
	}

	var m messenger
	if errors.As(err, &m) {
		return m.ErrorMessage()
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return "Validation failed"
	}

	return internalMessage
}

// ErrorOp extracts the operation from an error (for logging).
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Op
	}

	return ""
}

// Errorf creates a new domain error with formatted message.
// Example: domain.Errorf(domain.EINVALID, "inventory.adjust", "unknown operation: %s", op)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps err with a code and operation. Returns nil if err is nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsCode returns true if err has the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// =============================================================================
// Validation Errors
// =============================================================================

// ValidationError represents one or more field validation failures.
type ValidationError struct {
	// Fields maps field names to error messages.
	Fields map[string]string

	Op string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			if e.Op != "" {
				return fmt.Sprintf("%s: %s: %s", e.Op, field, msg)
			}
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: validation failed for %d fields", e.Op, len(e.Fields))
	}
	return fmt.Sprintf("validation failed for %d fields", len(e.Fields))
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{
		Op:     op,
		Fields: map[string]string{field: message},
	}
}

// AddFieldError adds a field error to an existing ValidationError,
// or starts a new one when err is nil or of another type.
func AddFieldError(err error, field, message string) error {
	var ve *ValidationError
	if err != nil && errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}

	return &ValidationError{
		Fields: map[string]string{field: message},
	}
}

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationFields extracts field errors from a ValidationError.
// Returns nil if err is not a ValidationError.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// =============================================================================
// Stock errors
// =============================================================================

// InsufficientStockError is returned when a checkout line asks for more units
// than the ledger holds. Nothing is persisted when it is returned.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Title     string
	Requested int32
	Available int32
	// Line is the zero-based index of the offending checkout line.
	Line int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (line %d): requested %d, available %d",
		e.Title, e.Line, e.Requested, e.Available)
}

func (e *InsufficientStockError) ErrorCode() string { return ECONFLICT }

func (e *InsufficientStockError) ErrorMessage() string {
	if e.Available == 0 {
		return fmt.Sprintf("%s is out of stock", e.Title)
	}
	return fmt.Sprintf("Only %d of %s available", e.Available, e.Title)
}

// IsInsufficientStock reports whether err is an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var se *InsufficientStockError
	return errors.As(err, &se)
}

// StockNotRecordedError marks a checkout whose stock decrements were issued
// but whose order could not be confirmed as recorded. Operators reconcile these.
type StockNotRecordedError struct {
	OrderNumber string
	Err         error
}

func (e *StockNotRecordedError) Error() string {
	return fmt.Sprintf("stock reserved but order %s not recorded: %v", e.OrderNumber, e.Err)
}

func (e *StockNotRecordedError) Unwrap() error { return e.Err }

func (e *StockNotRecordedError) ErrorCode() string { return EINTERNAL }

// =============================================================================
// Common errors (convenience)
// =============================================================================

// Pre-defined errors for states that recur across services.
var (
	ErrCartEmpty = &Error{
		Code:    EINVALID,
		Message: "Cart is empty",
	}

	ErrPaymentNotConfirmed = &Error{
		Code:    EPAYMENT,
		Message: "Payment has not been confirmed",
	}

	// ErrPaymentMismatch means the confirmed payment does not cover the
	// order at current prices. Nothing is reserved.
	ErrPaymentMismatch = &Error{
		Code:    EPAYMENT,
		Message: "Payment amount does not match the order total",
	}
)

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("inventory.get_available", "color", colorID.String())
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

func Unauthorized(op, message string) error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

func Forbidden(op, message string) error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Invalid creates a validation error for a single issue.
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
// Example: domain.Conflict("order.update_status", "cannot move delivered order to processing")
func Conflict(op, message string) error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal wraps an underlying error. Users see a generic message; the cause is logged.
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
