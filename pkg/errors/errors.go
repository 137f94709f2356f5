package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRateLimited  = "RATE_LIMITED"

	CodeOverlap                  = "SLOT_OVERLAP"
	CodeTooFarInAdvance          = "TOO_FAR_IN_ADVANCE"
	CodeTooManyActiveBookings    = "TOO_MANY_ACTIVE_BOOKINGS"
	CodeSlotDurationInvalid      = "SLOT_DURATION_INVALID"
	CodeOutsideOperatingHours    = "OUTSIDE_OPERATING_HOURS"
	CodeSlotInPast               = "SLOT_IN_PAST"
	CodeGuestsNotAllowed         = "GUESTS_NOT_ALLOWED"
	CodeEntitlementRequired      = "ENTITLEMENT_REQUIRED"
	CodeInvalidState             = "INVALID_STATE"
	CodeAlreadyTerminal          = "ALREADY_TERMINAL"
	CodeCancellationWindowClosed = "CANCELLATION_WINDOW_CLOSED"
	CodeStoreTimeout             = "STORE_TIMEOUT"
	CodeStoreUnavailable         = "STORE_UNAVAILABLE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

// Retryable reports whether the same request may succeed if sent again
// unchanged.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeStoreTimeout, CodeStoreUnavailable, CodeRateLimited:
		return true
	}
	return false
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e.Response())
	return data
}

func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		Retryable: e.Retryable(),
	}
}

type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Overlap reports that the requested slot intersects an active reservation
// on the same court and date.
func Overlap(resourceID, date, conflictingID string) *AppError {
	details := map[string]any{
		"resource_id": resourceID,
		"date":        date,
	}
	if conflictingID != "" {
		details["conflicting_reservation_id"] = conflictingID
	}
	return &AppError{
		Code:       CodeOverlap,
		Message:    "Requested slot overlaps an existing reservation",
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

func TooFarInAdvance(maxDays int, date string) *AppError {
	return &AppError{
		Code:       CodeTooFarInAdvance,
		Message:    fmt.Sprintf("Bookings open at most %d days in advance", maxDays),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"advance_booking_days": maxDays, "date": date},
	}
}

func TooManyActiveBookings(limit int) *AppError {
	return &AppError{
		Code:       CodeTooManyActiveBookings,
		Message:    fmt.Sprintf("Requester already holds the maximum of %d active bookings", limit),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"max_bookings_per_user": limit},
	}
}

func SlotDurationInvalid(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeSlotDurationInvalid,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func OutsideOperatingHours(opensAt, closesAt string) *AppError {
	return &AppError{
		Code:       CodeOutsideOperatingHours,
		Message:    fmt.Sprintf("Courts can be booked between %s and %s", opensAt, closesAt),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"opens_at": opensAt, "closes_at": closesAt},
	}
}

func SlotInPast() *AppError {
	return &AppError{
		Code:       CodeSlotInPast,
		Message:    "Requested slot has already started",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func GuestsNotAllowed() *AppError {
	return &AppError{
		Code:       CodeGuestsNotAllowed,
		Message:    "Club does not accept guest bookings",
		HTTPStatus: http.StatusForbidden,
	}
}

func EntitlementRequired() *AppError {
	return &AppError{
		Code:       CodeEntitlementRequired,
		Message:    "A membership or season pass covering this slot is required",
		HTTPStatus: http.StatusForbidden,
	}
}

func InvalidState(status, action string) *AppError {
	return &AppError{
		Code:       CodeInvalidState,
		Message:    fmt.Sprintf("Cannot %s a reservation in status %s", action, status),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"status": status, "action": action},
	}
}

func AlreadyTerminal(status string) *AppError {
	return &AppError{
		Code:       CodeAlreadyTerminal,
		Message:    fmt.Sprintf("Reservation is already %s", status),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"status": status},
	}
}

func CancellationWindowClosed(deadline time.Time) *AppError {
	return &AppError{
		Code:       CodeCancellationWindowClosed,
		Message:    "Cancellation deadline has passed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"deadline": deadline.UTC().Format(time.RFC3339)},
	}
}

func RateLimited(retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
		Details:    map[string]any{"retry_after_seconds": int(retryAfter.Seconds())},
	}
}

func StoreTimeout(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeStoreTimeout,
		Message:    fmt.Sprintf("Store did not answer in time during %s", operation),
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func StoreUnavailable(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeStoreUnavailable,
		Message:    fmt.Sprintf("Store is temporarily unavailable during %s", operation),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
