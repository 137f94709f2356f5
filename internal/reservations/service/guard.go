package service

import (
	"context"
	"courtkeeper/internal/clubs"
	reservationerrors "courtkeeper/internal/reservations/errors"
	"courtkeeper/internal/reservations/repository"
	"courtkeeper/pkg/clock"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"errors"

	"github.com/google/uuid"
)

// CacheInvalidator drops derived availability after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, clubID, resourceID, date string)
}

// ConflictGuard is the only way reservations get created. The store decides
// atomically whether the slot is still free; the guard never reads the
// availability cache.
type ConflictGuard struct {
	repo   repository.ReservationRepository
	policy *clubs.Policy
	cache  CacheInvalidator
	clock  clock.Clock
	log    *logger.Logger
}

func NewConflictGuard(
	repo repository.ReservationRepository,
	policy *clubs.Policy,
	cache CacheInvalidator,
	clk clock.Clock,
	log *logger.Logger,
) *ConflictGuard {
	return &ConflictGuard{
		repo:   repo,
		policy: policy,
		cache:  cache,
		clock:  clk,
		log:    log.Component("conflict_guard"),
	}
}

// TryReserve stores a pending reservation for the claim unless an active
// reservation overlaps it. Replaying a claim with a request key that was
// already used returns the stored reservation and created=false; a key
// stored for a different slot is a conflict.
func (g *ConflictGuard) TryReserve(ctx context.Context, club *model.Club, claim model.ReservationClaim) (*model.Reservation, bool, error) {
	slot := claim.Slot

	if err := g.policy.ValidateSlot(club, slot, claim.BookableUntil); err != nil {
		return nil, false, err
	}

	startsAt, endsAt, err := slot.Instants(club.Location())
	if err != nil {
		return nil, false, apperrors.Validation("Invalid date", map[string]any{"date": slot.Date})
	}

	now := g.clock.Now()
	hold := now.Add(club.Rules.HoldWindow())
	source := claim.Source
	if source == "" {
		source = model.SourceMember
	}

	candidate := &model.Reservation{
		ID:              uuid.NewString(),
		ClubID:          club.ID,
		RequesterID:     claim.RequesterID,
		TimeSlot:        slot,
		StartsAt:        startsAt.UTC(),
		EndsAt:          endsAt.UTC(),
		Status:          model.StatusPending,
		Source:          source,
		RequestKey:      claim.RequestKey,
		EntitlementID:   claim.EntitlementID,
		DiscountPercent: claim.DiscountPercent,
		TournamentID:    claim.TournamentID,
		SeasonPassID:    claim.SeasonPassID,
		HoldExpiresAt:   &hold,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stored, created, err := g.repo.InsertIfNoOverlap(ctx, candidate)
	if err != nil {
		var overlap *reservationerrors.OverlapError
		if errors.As(err, &overlap) {
			g.log.Info("Slot already taken",
				"club_id", club.ID,
				"slot", slot.Label(),
				"conflicting_id", overlap.ConflictingID,
			)
			return nil, false, apperrors.Overlap(slot.ResourceID, slot.Date, overlap.ConflictingID)
		}
		if errors.Is(err, reservationerrors.ErrOverlap) {
			return nil, false, apperrors.Overlap(slot.ResourceID, slot.Date, "")
		}
		g.log.Error("Failed to reserve slot", "club_id", club.ID, "slot", slot.Label(), "error", err)
		return nil, false, storeError("reserve slot", err)
	}

	if !created {
		if stored.TimeSlot != slot {
			g.log.Warn("Request key reused for a different slot",
				"id", stored.ID,
				"request_key", claim.RequestKey,
				"slot", slot.Label(),
			)
			return nil, false, requestKeyReused()
		}
		g.log.Info("Replayed reservation for request key",
			"id", stored.ID,
			"request_key", claim.RequestKey,
		)
		return stored, false, nil
	}

	g.cache.Invalidate(ctx, club.ID, slot.ResourceID, slot.Date)

	g.log.Info("Reservation created",
		"id", stored.ID,
		"club_id", club.ID,
		"slot", slot.Label(),
		"requester_id", stored.RequesterID,
		"source", stored.Source,
	)
	return stored, true, nil
}
