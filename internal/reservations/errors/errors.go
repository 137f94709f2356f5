package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrOverlap = errors.New("slot overlaps an active reservation")

	ErrStatusChanged = errors.New("reservation status changed concurrently")

	ErrDuplicateRequestKey = errors.New("request key already used")

	ErrStoreTimeout = errors.New("store operation timed out")

	ErrStoreUnavailable = errors.New("store unavailable")
)

// OverlapError names the reservation that blocked the insert when the store
// can tell.
type OverlapError struct {
	ConflictingID string
}

func (e *OverlapError) Error() string {
	return ErrOverlap.Error()
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}
