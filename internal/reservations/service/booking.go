package service

import (
	"context"
	"courtkeeper/internal/clubs"
	courtserrors "courtkeeper/internal/courts/errors"
	courtsrepository "courtkeeper/internal/courts/repository"
	reservationerrors "courtkeeper/internal/reservations/errors"
	"courtkeeper/internal/reservations/repository"
	"courtkeeper/internal/reservations/validator"
	"courtkeeper/pkg/clock"
	"courtkeeper/pkg/config"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/model"
	"courtkeeper/pkg/validation"
	"errors"
	"sync"
	"time"
)

type ClubResolver interface {
	Club(id string) (*model.Club, error)
}

type AccessChecker interface {
	CheckAccess(ctx context.Context, clubID, userID string, slot model.TimeSlot) (model.AccessDecision, error)
}

type AvailabilityReader interface {
	Get(ctx context.Context, club *model.Club, resourceID, date string) (*model.Availability, error)
}

type BookingService interface {
	// RequestBooking returns created=false when the request key replayed an
	// earlier booking.
	RequestBooking(ctx context.Context, clubID string, req *model.BookingRequest, requester model.Requester) (*model.Reservation, bool, error)
	ConfirmBooking(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
	CancelBooking(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
	MarkNoShow(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
	GetByID(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
	ListByRequester(ctx context.Context, clubID string, requester model.Requester, limit int, offset int64) ([]*model.Reservation, int64, error)
	GetAvailability(ctx context.Context, clubID, courtID, date string) (*model.Availability, error)
}

// Deps wires a booking service.
type Deps struct {
	Clubs        ClubResolver
	Courts       courtsrepository.CourtRepository
	Repo         repository.ReservationRepository
	Access       AccessChecker
	Policy       *clubs.Policy
	Guard        *ConflictGuard
	Lifecycle    *Lifecycle
	Availability AvailabilityReader
	Validator    *validator.ReservationValidator
	Clock        clock.Clock
}

type bookingService struct {
	Deps
	cfg *config.Config
}

func NewBookingService(deps Deps, cfg *config.Config) BookingService {
	return &bookingService{Deps: deps, cfg: cfg}
}

func (s *bookingService) club(clubID string) (*model.Club, error) {
	club, err := s.Clubs.Club(clubID)
	if err != nil {
		if errors.Is(err, clubs.ErrClubNotFound) {
			return nil, apperrors.NotFoundWithID("Club", clubID)
		}
		return nil, apperrors.Internal("Failed to resolve club", err)
	}
	return club, nil
}

func (s *bookingService) court(ctx context.Context, clubID, courtID string) (*model.Court, error) {
	court, err := s.Courts.FindByID(ctx, clubID, courtID)
	if err != nil {
		if errors.Is(err, courtserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Court", courtID)
		}
		return nil, storeError("load court", err)
	}
	return court, nil
}

func validationError(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.InvalidInput(err.Error())
}

func (s *bookingService) RequestBooking(ctx context.Context, clubID string, req *model.BookingRequest, requester model.Requester) (*model.Reservation, bool, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, false, err
	}
	if err := s.Validator.ValidateRequester(requester); err != nil {
		return nil, false, validationError("Invalid requester", err)
	}
	if err := s.Validator.ValidateRequest(req); err != nil {
		return nil, false, validationError("Invalid booking request", err)
	}

	// A retry of a booking that already went through must not be judged
	// against limits it now counts towards.
	if req.RequestKey != "" {
		existing, err := s.Repo.FindByRequestKey(ctx, club.ID, req.RequestKey)
		if err == nil {
			return s.replay(ctx, club, existing, req.TimeSlot, requester)
		}
		if !errors.Is(err, reservationerrors.ErrNotFound) {
			return nil, false, storeError("look up request key", err)
		}
	}

	court, err := s.court(ctx, club.ID, req.ResourceID)
	if err != nil {
		return nil, false, err
	}
	if !court.Active {
		return nil, false, apperrors.Validation("Court is not open for booking", map[string]any{"resource_id": court.ID})
	}

	slot := req.TimeSlot
	decision, err := s.Access.CheckAccess(ctx, club.ID, requester.ID, slot)
	if err != nil {
		return nil, false, storeError("check entitlements", err)
	}

	activeCount, err := s.Repo.CountActiveByRequester(ctx, club.ID, requester.ID, s.Clock.Now())
	if err != nil {
		return nil, false, storeError("count active reservations", err)
	}

	if err := s.Policy.ValidateRequest(club, slot, requester, activeCount, decision); err != nil {
		return nil, false, err
	}

	claim := model.ReservationClaim{
		Slot:        slot,
		RequesterID: requester.ID,
		RequestKey:  req.RequestKey,
		Source:      model.SourceMember,
	}
	if decision.Entitlement != nil {
		claim.EntitlementID = decision.Entitlement.ID
		claim.DiscountPercent = decision.Entitlement.DiscountPercent
	}

	r, created, err := s.Guard.TryReserve(ctx, club, claim)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return s.replay(ctx, club, r, slot, requester)
	}

	s.Lifecycle.Created(ctx, r)
	return s.autoConfirm(ctx, club, r, requester), true, nil
}

func (s *bookingService) replay(ctx context.Context, club *model.Club, r *model.Reservation, slot model.TimeSlot, requester model.Requester) (*model.Reservation, bool, error) {
	if r.RequesterID != requester.ID {
		return nil, false, apperrors.Conflict("Idempotency key already used by another requester")
	}
	if r.TimeSlot != slot {
		return nil, false, requestKeyReused()
	}
	return s.autoConfirm(ctx, club, r, requester), false, nil
}

// autoConfirm confirms right away for clubs that take no payment. A failure
// leaves the reservation pending; the hold expires it if nothing else does.
func (s *bookingService) autoConfirm(ctx context.Context, club *model.Club, r *model.Reservation, requester model.Requester) *model.Reservation {
	if club.Rules.RequirePayment || r.Status != model.StatusPending {
		return r
	}
	confirmed, err := s.Lifecycle.Confirm(ctx, club, r.ID, requester)
	if err != nil {
		s.cfg.Log.Warn("Failed to auto-confirm reservation", "id", r.ID, "error", err)
		return r
	}
	return confirmed
}

func (s *bookingService) ConfirmBooking(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	return s.Lifecycle.Confirm(ctx, club, id, requester)
}

func (s *bookingService) CancelBooking(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	return s.Lifecycle.Cancel(ctx, club, id, requester)
}

func (s *bookingService) MarkNoShow(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	return s.Lifecycle.MarkNoShow(ctx, club, id, requester)
}

func (s *bookingService) GetByID(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}

	r, err := s.Lifecycle.load(ctx, club.ID, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(r, requester); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *bookingService) ListByRequester(ctx context.Context, clubID string, requester model.Requester, limit int, offset int64) ([]*model.Reservation, int64, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, 0, err
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.Repo.CountByRequester(ctx, club.ID, requester.ID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", errCount)
			errCount = storeError("count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.Repo.FindByRequester(ctx, club.ID, requester.ID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "error", errFind)
			errFind = storeError("list reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return reservations, count, nil
}

func (s *bookingService) GetAvailability(ctx context.Context, clubID, courtID, date string) (*model.Availability, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperrors.Validation("Invalid date", map[string]any{"date": "must be in YYYY-MM-DD format"})
	}
	if _, err := s.court(ctx, club.ID, courtID); err != nil {
		return nil, err
	}

	availability, err := s.Availability.Get(ctx, club, courtID, date)
	if err != nil {
		return nil, storeError("compute availability", err)
	}
	return availability, nil
}
