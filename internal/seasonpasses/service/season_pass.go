package service

import (
	"context"
	"courtkeeper/internal/clubs"
	courtserrors "courtkeeper/internal/courts/errors"
	passerrors "courtkeeper/internal/seasonpasses/errors"
	"courtkeeper/internal/seasonpasses/repository"
	"courtkeeper/pkg/clock"
	"courtkeeper/pkg/config"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/model"
	"courtkeeper/pkg/validation"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ClubResolver interface {
	Club(id string) (*model.Club, error)
}

type CourtFinder interface {
	FindByID(ctx context.Context, clubID, id string) (*model.Court, error)
}

// Allocator reserves and releases court time owned by the club.
type Allocator interface {
	Reserve(ctx context.Context, club *model.Club, claim model.ReservationClaim) (*model.Reservation, error)
	Confirm(ctx context.Context, club *model.Club, r *model.Reservation) (*model.Reservation, error)
	Release(ctx context.Context, club *model.Club, id, by string) error
}

// EntitlementWriter grants and ends the access a pass carries.
type EntitlementWriter interface {
	Create(ctx context.Context, e *model.Entitlement) error
	EndOn(ctx context.Context, id, validUntil string) error
}

type SeasonPassService interface {
	Issue(ctx context.Context, clubID string, pass *model.SeasonPass, issuer model.Requester) (*model.SeasonPass, error)
	Revoke(ctx context.Context, clubID, id string, issuer model.Requester) (*model.SeasonPass, error)
	GetByID(ctx context.Context, clubID, id string, requester model.Requester) (*model.SeasonPass, error)
}

type seasonPassService struct {
	repo         repository.SeasonPassRepository
	clubs        ClubResolver
	courts       CourtFinder
	allocator    Allocator
	entitlements EntitlementWriter
	validator    *validation.Validator
	clock        clock.Clock
	cfg          *config.Config
}

func NewSeasonPassService(
	repo repository.SeasonPassRepository,
	clubs ClubResolver,
	courts CourtFinder,
	allocator Allocator,
	entitlements EntitlementWriter,
	validator *validation.Validator,
	clk clock.Clock,
	cfg *config.Config,
) SeasonPassService {
	return &seasonPassService{
		repo:         repo,
		clubs:        clubs,
		courts:       courts,
		allocator:    allocator,
		entitlements: entitlements,
		validator:    validator,
		clock:        clk,
		cfg:          cfg,
	}
}

// Issue books every remaining weekly occurrence of the pass for its holder.
// Occurrences already taken by someone else are recorded as conflicts and
// skipped; any other failure undoes the whole pass.
func (s *seasonPassService) Issue(ctx context.Context, clubID string, pass *model.SeasonPass, issuer model.Requester) (*model.SeasonPass, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	if !issuer.CanOverride() {
		return nil, apperrors.Forbidden("Only club staff may issue season passes")
	}
	if err := s.validate(ctx, club, pass); err != nil {
		return nil, err
	}

	dates, err := occurrences(pass, club.Location())
	if err != nil {
		return nil, apperrors.Validation("Invalid season pass schedule", map[string]any{"error": err.Error()})
	}

	now := s.clock.Now()
	upcoming := make([]string, 0, len(dates))
	for _, date := range dates {
		startsAt, _, err := pass.SlotOn(date).Instants(club.Location())
		if err == nil && !startsAt.Before(now) {
			upcoming = append(upcoming, date)
		}
	}
	if len(upcoming) == 0 {
		return nil, apperrors.Validation("Season pass has no upcoming occurrences", map[string]any{
			"valid_from":  pass.ValidFrom,
			"valid_until": pass.ValidUntil,
			"weekday":     pass.Weekday,
		})
	}

	pass.ID = uuid.NewString()
	pass.ClubID = club.ID
	pass.Status = model.SeasonPassActive
	pass.Entries = make([]model.LedgerEntry, 0, len(upcoming))
	pass.CreatedAt = now
	pass.UpdatedAt = now

	held := make([]*model.Reservation, 0, len(upcoming))
	for _, date := range upcoming {
		claim := model.ReservationClaim{
			Slot:            pass.SlotOn(date),
			RequesterID:     pass.HolderID,
			RequestKey:      fmt.Sprintf("season-pass:%s:%s", pass.ID, date),
			Source:          model.SourceSeasonPass,
			BookableUntil:   pass.ValidUntil,
			DiscountPercent: pass.DiscountPercent,
			SeasonPassID:    pass.ID,
		}
		r, err := s.allocator.Reserve(ctx, club, claim)
		if apperrors.HasCode(err, apperrors.CodeOverlap) {
			reason := "slot already booked"
			if id, ok := apperrors.AsAppError(err).Details["conflicting_reservation_id"].(string); ok {
				reason = "slot already booked by reservation " + id
			}
			pass.Entries = append(pass.Entries, model.LedgerEntry{
				Date:       date,
				Outcome:    model.OutcomeConflict,
				Reason:     reason,
				RecordedAt: now,
			})
			continue
		}
		if err != nil {
			s.releaseAll(ctx, club, held, issuer.ID)
			return nil, err
		}
		held = append(held, r)
		pass.Entries = append(pass.Entries, model.LedgerEntry{
			Date:          date,
			ReservationID: r.ID,
			Outcome:       model.OutcomeBooked,
			RecordedAt:    now,
		})
	}

	for _, r := range held {
		if _, err := s.allocator.Confirm(ctx, club, r); err != nil {
			s.releaseAll(ctx, club, held, issuer.ID)
			return nil, err
		}
	}

	entitlement := &model.Entitlement{
		ID:         uuid.NewString(),
		ClubID:     club.ID,
		UserID:     pass.HolderID,
		Kind:       model.EntitlementSeasonPass,
		ValidFrom:  pass.ValidFrom,
		ValidUntil: pass.ValidUntil,
		Access: model.AccessRule{
			Kind: model.AccessWindowed,
			Windows: []model.AccessWindow{{
				Weekdays: []string{pass.Weekday},
				Start:    pass.Start,
				End:      pass.End,
			}},
		},
		ResourceIDs:     []string{pass.ResourceID},
		DiscountPercent: pass.DiscountPercent,
		SeasonPassID:    pass.ID,
		CreatedAt:       now,
	}
	if err := s.entitlements.Create(ctx, entitlement); err != nil {
		s.cfg.Log.Error("Failed to grant season pass entitlement", "season_pass_id", pass.ID, "error", err)
		s.releaseAll(ctx, club, held, issuer.ID)
		return nil, storeError("grant entitlement", err)
	}
	pass.EntitlementID = entitlement.ID

	if err := s.repo.Create(ctx, pass); err != nil {
		s.cfg.Log.Error("Failed to store season pass", "season_pass_id", pass.ID, "error", err)
		s.releaseAll(ctx, club, held, issuer.ID)
		s.endEntitlement(ctx, pass, club.Today(now))
		return nil, storeError("create season pass", err)
	}

	s.cfg.Log.Info("Season pass issued",
		"season_pass_id", pass.ID,
		"club_id", club.ID,
		"holder_id", pass.HolderID,
		"booked", len(held),
		"conflicts", len(pass.Entries)-len(held),
	)
	return pass, nil
}

// Revoke releases the occurrences that have not started yet and ends the
// holder's entitlement today. Past occurrences stay as they were.
func (s *seasonPassService) Revoke(ctx context.Context, clubID, id string, issuer model.Requester) (*model.SeasonPass, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	if !issuer.CanOverride() {
		return nil, apperrors.Forbidden("Only club staff may revoke season passes")
	}

	pass, err := s.repo.FindByID(ctx, club.ID, id)
	if err != nil {
		return nil, storeError("load season pass", err)
	}
	if pass.Status == model.SeasonPassRevoked {
		return pass, nil
	}

	now := s.clock.Now()
	released := 0
	for i, entry := range pass.Entries {
		if entry.Outcome != model.OutcomeBooked {
			continue
		}
		startsAt, _, err := pass.SlotOn(entry.Date).Instants(club.Location())
		if err != nil || startsAt.Before(now) {
			continue
		}
		if err := s.allocator.Release(ctx, club, entry.ReservationID, issuer.ID); err != nil {
			s.cfg.Log.Error("Failed to release season pass occurrence",
				"season_pass_id", pass.ID,
				"reservation_id", entry.ReservationID,
				"error", err,
			)
			return nil, err
		}
		pass.Entries[i].Outcome = model.OutcomeReleased
		pass.Entries[i].Reason = "pass revoked"
		pass.Entries[i].RecordedAt = now
		released++
	}

	s.endEntitlement(ctx, pass, club.Today(now))

	pass.Status = model.SeasonPassRevoked
	pass.UpdatedAt = now
	if err := s.repo.Update(ctx, pass); err != nil {
		return nil, storeError("revoke season pass", err)
	}

	s.cfg.Log.Info("Season pass revoked", "season_pass_id", pass.ID, "released", released)
	return pass, nil
}

// GetByID shows a pass to its holder and to staff.
func (s *seasonPassService) GetByID(ctx context.Context, clubID, id string, requester model.Requester) (*model.SeasonPass, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	pass, err := s.repo.FindByID(ctx, club.ID, id)
	if err != nil {
		return nil, storeError("load season pass", err)
	}
	if pass.HolderID != requester.ID && !requester.CanOverride() {
		return nil, apperrors.NotFoundWithID("Season pass", id)
	}
	return pass, nil
}

func (s *seasonPassService) validate(ctx context.Context, club *model.Club, pass *model.SeasonPass) error {
	if err := s.validator.Struct(pass); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Invalid season pass", verrs.Details())
		}
		return apperrors.InvalidInput(err.Error())
	}

	days, err := model.DaysBetween(pass.ValidFrom, pass.ValidUntil)
	if err != nil || days < 0 {
		return apperrors.Validation("valid_until must not be before valid_from", map[string]any{
			"valid_from":  pass.ValidFrom,
			"valid_until": pass.ValidUntil,
		})
	}
	if days > maxPassDays {
		return apperrors.Validation(fmt.Sprintf("A season pass can span at most %d days", maxPassDays), map[string]any{
			"valid_from":  pass.ValidFrom,
			"valid_until": pass.ValidUntil,
		})
	}

	court, err := s.courts.FindByID(ctx, club.ID, pass.ResourceID)
	if err != nil {
		if errors.Is(err, courtserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Court", pass.ResourceID)
		}
		return storeError("load court", err)
	}
	if !court.Active {
		return apperrors.Validation("Court is not open for booking", map[string]any{"resource_id": court.ID})
	}
	return nil
}

// endEntitlement makes yesterday the last valid day, so the holder keeps
// no pass access from today on.
func (s *seasonPassService) endEntitlement(ctx context.Context, pass *model.SeasonPass, today string) {
	if pass.EntitlementID == "" {
		return
	}
	day, err := time.Parse(model.DateLayout, today)
	if err != nil {
		return
	}
	yesterday := day.AddDate(0, 0, -1).Format(model.DateLayout)
	if err := s.entitlements.EndOn(ctx, pass.EntitlementID, yesterday); err != nil {
		s.cfg.Log.Error("Failed to end season pass entitlement",
			"season_pass_id", pass.ID,
			"entitlement_id", pass.EntitlementID,
			"error", err,
		)
	}
}

func (s *seasonPassService) releaseAll(ctx context.Context, club *model.Club, held []*model.Reservation, by string) {
	for _, r := range held {
		if err := s.allocator.Release(ctx, club, r.ID, by); err != nil {
			s.cfg.Log.Error("Failed to release season pass occurrence", "reservation_id", r.ID, "error", err)
		}
	}
}

func (s *seasonPassService) club(clubID string) (*model.Club, error) {
	club, err := s.clubs.Club(clubID)
	if err != nil {
		if errors.Is(err, clubs.ErrClubNotFound) {
			return nil, apperrors.NotFoundWithID("Club", clubID)
		}
		return nil, apperrors.Internal("Failed to resolve club", err)
	}
	return club, nil
}

func storeError(op string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, passerrors.ErrNotFound):
		return apperrors.NotFound("Season pass")
	case errors.Is(err, passerrors.ErrAlreadyExists):
		return apperrors.Conflict("Season pass already exists")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.StoreTimeout(op, err)
	default:
		return apperrors.Internal("Failed to "+op, err)
	}
}
