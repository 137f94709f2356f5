package service

import (
	reservationerrors "courtkeeper/internal/reservations/errors"
	apperrors "courtkeeper/pkg/errors"
	"errors"
)

// storeError maps repository errors onto API errors. AppErrors pass through.
func storeError(op string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, reservationerrors.ErrNotFound):
		return apperrors.NotFound("Reservation")
	case errors.Is(err, reservationerrors.ErrStoreTimeout):
		return apperrors.StoreTimeout(op, err)
	case errors.Is(err, reservationerrors.ErrStoreUnavailable):
		return apperrors.StoreUnavailable(op, err)
	default:
		return apperrors.Internal("Failed to "+op, err)
	}
}

func requestKeyReused() error {
	return apperrors.Conflict("Idempotency key reused with a different request")
}
