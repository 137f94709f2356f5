package repository

import (
	"context"
	reservationerrors "courtkeeper/internal/reservations/errors"
	"courtkeeper/pkg/model"
	"errors"
	"fmt"
	"time"
)

const (
	CollectionName      = "Reservations"
	GuardCollectionName = "Reservation_guards"
)

// ReservationRepository is the durable store behind the conflict guard and
// the lifecycle. Every implementation must make InsertIfNoOverlap atomic
// across processes for a given (club, court, date).
type ReservationRepository interface {
	// InsertIfNoOverlap stores r unless an active reservation on the same
	// court and date overlaps it. When r.RequestKey was already used in the
	// club, the stored reservation is returned with created=false.
	InsertIfNoOverlap(ctx context.Context, r *model.Reservation) (stored *model.Reservation, created bool, err error)
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindByRequestKey(ctx context.Context, clubID, requestKey string) (*model.Reservation, error)
	FindActiveBySlot(ctx context.Context, clubID, resourceID, date string) ([]*model.Reservation, error)
	FindByRequester(ctx context.Context, clubID, requesterID string, limit int, offset int64) ([]*model.Reservation, error)
	CountByRequester(ctx context.Context, clubID, requesterID string) (int64, error)
	// CountActiveByRequester counts only the requester's own member
	// bookings; tournament blocks and season pass occurrences are exempt.
	CountActiveByRequester(ctx context.Context, clubID, requesterID string, endingAfter time.Time) (int64, error)
	// Transition applies t only if the current status is one of t.From.
	Transition(ctx context.Context, id string, t model.Transition) (*model.Reservation, error)
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)
	FindEnded(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)
}

// applyTransition mutates r the same way every store does.
func applyTransition(r *model.Reservation, t model.Transition) {
	at := t.At
	r.Status = t.To
	r.UpdatedAt = at
	switch t.To {
	case model.StatusConfirmed:
		r.ConfirmedAt = &at
		r.HoldExpiresAt = nil
	case model.StatusCancelled:
		r.CancelledAt = &at
		r.CancelledBy = t.By
		r.CancelReason = t.Reason
	}
}

func statusStrings(statuses []model.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// withTimeout bounds ctx by timeout unless the caller's deadline is sooner.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func classifyContext(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, reservationerrors.ErrStoreTimeout, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
