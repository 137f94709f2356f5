package service

import (
	"context"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/model"
)

// BlockAllocator reserves slots on behalf of the club itself, for tournament
// blocks and season pass occurrences. Blocks go through the conflict guard
// like any booking but skip member policy, and are confirmed by the system
// rather than by payment.
type BlockAllocator struct {
	guard     *ConflictGuard
	lifecycle *Lifecycle
}

func NewBlockAllocator(guard *ConflictGuard, lifecycle *Lifecycle) *BlockAllocator {
	return &BlockAllocator{guard: guard, lifecycle: lifecycle}
}

// Reserve holds the claimed slot as pending. A replayed request key returns
// the earlier reservation if it still blocks its slot.
func (a *BlockAllocator) Reserve(ctx context.Context, club *model.Club, claim model.ReservationClaim) (*model.Reservation, error) {
	r, created, err := a.guard.TryReserve(ctx, club, claim)
	if err != nil {
		return nil, err
	}
	if created {
		a.lifecycle.Created(ctx, r)
		return r, nil
	}
	if !r.Status.IsActive() {
		return nil, apperrors.InvalidState(string(r.Status), "allocate").
			WithDetails(map[string]any{"reservation_id": r.ID, "request_key": claim.RequestKey})
	}
	return r, nil
}

func (a *BlockAllocator) Confirm(ctx context.Context, club *model.Club, r *model.Reservation) (*model.Reservation, error) {
	if r.Status != model.StatusPending {
		return r, nil
	}
	return a.lifecycle.Confirm(ctx, club, r.ID, SystemRequester)
}

func (a *BlockAllocator) Release(ctx context.Context, club *model.Club, id, by string) error {
	_, err := a.lifecycle.Release(ctx, club, id, by)
	return err
}
