package service

import (
	"context"
	reservationerrors "courtkeeper/internal/reservations/errors"
	"courtkeeper/internal/reservations/repository"
	"courtkeeper/pkg/clock"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"errors"
	"time"
)

// SystemRequester acts for background work such as payment confirmation and
// releases made by tournaments or season passes.
var SystemRequester = model.Requester{ID: "system", Role: model.RoleStaff}

// maxTransitionAttempts bounds re-reads after losing a compare-and-set race.
const maxTransitionAttempts = 3

// Publisher emits reservation lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event *model.ReservationEvent) error
}

// decision is what a lifecycle operation wants done with the reservation as
// it currently stands. A nil transition means nothing to store. err is
// returned to the caller, after the transition when there is one.
type decision struct {
	transition *model.Transition
	event      model.ReservationEventType
	err        error
}

// Lifecycle moves reservations through their states. Each change is a
// compare-and-set on the stored status; a lost race re-reads the reservation
// and evaluates the request again against its new state.
type Lifecycle struct {
	repo      repository.ReservationRepository
	cache     CacheInvalidator
	publisher Publisher
	clock     clock.Clock
	log       *logger.Logger
}

func NewLifecycle(
	repo repository.ReservationRepository,
	cache CacheInvalidator,
	publisher Publisher,
	clk clock.Clock,
	log *logger.Logger,
) *Lifecycle {
	return &Lifecycle{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		clock:     clk,
		log:       log.Component("lifecycle"),
	}
}

// Confirm moves a pending reservation to confirmed. A reservation whose hold
// already lapsed is expired instead and the confirmation is refused. At clubs
// that take payment only staff or the system may confirm, never the member.
func (l *Lifecycle) Confirm(ctx context.Context, club *model.Club, id string, requester model.Requester) (*model.Reservation, error) {
	return l.run(ctx, club.ID, id, func(r *model.Reservation, now time.Time) decision {
		if err := authorize(r, requester); err != nil {
			return decision{err: err}
		}
		if r.Status != model.StatusPending {
			return decision{err: apperrors.InvalidState(string(r.Status), "confirm")}
		}
		if r.HoldExpired(now) {
			return decision{
				transition: expireTransition(now),
				event:      model.EventReservationExpired,
				err: apperrors.InvalidState(string(model.StatusPending), "confirm").
					WithDetails(map[string]any{
						"status": model.StatusPending,
						"action": "confirm",
						"reason": model.CancelReasonHoldExpired,
					}),
			}
		}
		if club.Rules.RequirePayment && !requester.CanOverride() {
			return decision{err: apperrors.Forbidden("Reservation is confirmed once payment is captured")}
		}
		return decision{
			transition: &model.Transition{
				From: []model.ReservationStatus{model.StatusPending},
				To:   model.StatusConfirmed,
				At:   now,
				By:   requester.ID,
			},
			event: model.EventReservationConfirmed,
		}
	})
}

// Cancel cancels a pending reservation at any time and a confirmed one up
// to the club's cancellation deadline before it starts.
func (l *Lifecycle) Cancel(ctx context.Context, club *model.Club, id string, requester model.Requester) (*model.Reservation, error) {
	return l.run(ctx, club.ID, id, func(r *model.Reservation, now time.Time) decision {
		if err := authorize(r, requester); err != nil {
			return decision{err: err}
		}
		if r.Status.IsTerminal() {
			return decision{err: apperrors.AlreadyTerminal(string(r.Status))}
		}
		if r.Status == model.StatusConfirmed {
			deadline := r.StartsAt.Add(-club.Rules.CancellationDeadline())
			if now.After(deadline) {
				return decision{err: apperrors.CancellationWindowClosed(deadline)}
			}
		}
		return decision{
			transition: cancelTransition(r.Status, now, requester.ID, model.CancelReasonRequested),
			event:      model.EventReservationCancelled,
		}
	})
}

// Release cancels an active reservation without the deadline check. It is
// used for blocks owned by tournaments and season passes. Releasing an
// inactive reservation is a no-op.
func (l *Lifecycle) Release(ctx context.Context, club *model.Club, id string, by string) (*model.Reservation, error) {
	return l.run(ctx, club.ID, id, func(r *model.Reservation, now time.Time) decision {
		if !r.Status.IsActive() {
			return decision{}
		}
		return decision{
			transition: cancelTransition(r.Status, now, by, model.CancelReasonReleased),
			event:      model.EventReservationCancelled,
		}
	})
}

// MarkNoShow records that a confirmed reservation was not used. Staff only,
// and only once the slot has started.
func (l *Lifecycle) MarkNoShow(ctx context.Context, club *model.Club, id string, requester model.Requester) (*model.Reservation, error) {
	return l.run(ctx, club.ID, id, func(r *model.Reservation, now time.Time) decision {
		if !requester.CanOverride() {
			return decision{err: apperrors.Forbidden("Only club staff may record a no-show")}
		}
		if r.Status.IsTerminal() {
			return decision{err: apperrors.AlreadyTerminal(string(r.Status))}
		}
		if r.Status != model.StatusConfirmed || now.Before(r.StartsAt) {
			return decision{err: apperrors.InvalidState(string(r.Status), "mark as no-show")}
		}
		return decision{
			transition: &model.Transition{
				From: []model.ReservationStatus{model.StatusConfirmed},
				To:   model.StatusNoShow,
				At:   now,
				By:   requester.ID,
			},
			event: model.EventReservationNoShow,
		}
	})
}

// ExpireHold cancels a pending reservation whose payment hold lapsed.
func (l *Lifecycle) ExpireHold(ctx context.Context, r *model.Reservation) error {
	now := l.clock.Now()
	if !r.HoldExpired(now) {
		return nil
	}
	_, err := l.apply(ctx, r, *expireTransition(now), model.EventReservationExpired)
	if errors.Is(err, reservationerrors.ErrStatusChanged) {
		return nil
	}
	return err
}

// Complete marks a confirmed reservation whose slot has ended.
func (l *Lifecycle) Complete(ctx context.Context, r *model.Reservation) error {
	now := l.clock.Now()
	if r.Status != model.StatusConfirmed || now.Before(r.EndsAt) {
		return nil
	}
	t := model.Transition{
		From: []model.ReservationStatus{model.StatusConfirmed},
		To:   model.StatusCompleted,
		At:   now,
		By:   SystemRequester.ID,
	}
	_, err := l.apply(ctx, r, t, model.EventReservationCompleted)
	if errors.Is(err, reservationerrors.ErrStatusChanged) {
		return nil
	}
	return err
}

// Created publishes the creation of a reservation made by the guard.
func (l *Lifecycle) Created(ctx context.Context, r *model.Reservation) {
	l.publish(ctx, model.EventReservationCreated, r)
}

func expireTransition(now time.Time) *model.Transition {
	return &model.Transition{
		From:   []model.ReservationStatus{model.StatusPending},
		To:     model.StatusCancelled,
		At:     now,
		By:     SystemRequester.ID,
		Reason: model.CancelReasonHoldExpired,
	}
}

func cancelTransition(from model.ReservationStatus, now time.Time, by, reason string) *model.Transition {
	return &model.Transition{
		From:   []model.ReservationStatus{from},
		To:     model.StatusCancelled,
		At:     now,
		By:     by,
		Reason: reason,
	}
}

func authorize(r *model.Reservation, requester model.Requester) error {
	if requester.ID == r.RequesterID || requester.CanOverride() {
		return nil
	}
	return apperrors.Forbidden("Only the requester or club staff may change this reservation")
}

func (l *Lifecycle) load(ctx context.Context, clubID, id string) (*model.Reservation, error) {
	r, err := l.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		return nil, storeError("load reservation", err)
	}
	if r.ClubID != clubID {
		return nil, apperrors.NotFoundWithID("Reservation", id)
	}
	return r, nil
}

// run evaluates decide against fresh state until its transition sticks.
func (l *Lifecycle) run(ctx context.Context, clubID, id string, decide func(*model.Reservation, time.Time) decision) (*model.Reservation, error) {
	var lastErr error
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		r, err := l.load(ctx, clubID, id)
		if err != nil {
			return nil, err
		}

		d := decide(r, l.clock.Now())
		if d.transition == nil {
			if d.err != nil {
				return nil, d.err
			}
			return r, nil
		}

		updated, err := l.apply(ctx, r, *d.transition, d.event)
		if errors.Is(err, reservationerrors.ErrStatusChanged) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		if d.err != nil {
			return nil, d.err
		}
		return updated, nil
	}
	return nil, apperrors.Internal("Reservation kept changing during the update", lastErr)
}

// apply stores t, drops cached availability when the reservation stops
// blocking its slot, and publishes the event.
func (l *Lifecycle) apply(ctx context.Context, r *model.Reservation, t model.Transition, event model.ReservationEventType) (*model.Reservation, error) {
	updated, err := l.repo.Transition(ctx, r.ID, t)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrStatusChanged) {
			return nil, err
		}
		l.log.Error("Failed to transition reservation",
			"id", r.ID,
			"from", r.Status,
			"to", t.To,
			"error", err,
		)
		return nil, storeError("update reservation", err)
	}

	if r.Status.IsActive() && !updated.Status.IsActive() {
		l.cache.Invalidate(ctx, updated.ClubID, updated.ResourceID, updated.Date)
	}

	l.publish(ctx, event, updated)

	l.log.Info("Reservation transitioned",
		"id", updated.ID,
		"from", r.Status,
		"to", updated.Status,
		"by", t.By,
	)
	return updated, nil
}

func (l *Lifecycle) publish(ctx context.Context, eventType model.ReservationEventType, r *model.Reservation) {
	event := &model.ReservationEvent{
		EventType:   eventType,
		Reservation: r,
		OccurredAt:  l.clock.Now(),
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.log.Warn("Failed to publish reservation event",
			"event_type", eventType,
			"id", r.ID,
			"error", err,
		)
	}
}
