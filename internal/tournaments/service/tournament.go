package service

import (
	"context"
	"courtkeeper/internal/clubs"
	courtserrors "courtkeeper/internal/courts/errors"
	tournamenterrors "courtkeeper/internal/tournaments/errors"
	"courtkeeper/internal/tournaments/repository"
	"courtkeeper/pkg/clock"
	"courtkeeper/pkg/config"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/model"
	"courtkeeper/pkg/validation"
	"errors"
	"fmt"

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

type TournamentService interface {
	Allocate(ctx context.Context, clubID string, t *model.Tournament, requester model.Requester) (*model.Tournament, error)
	Cancel(ctx context.Context, clubID, id string, requester model.Requester) (*model.Tournament, error)
	GetByID(ctx context.Context, clubID, id string) (*model.Tournament, error)
}

type tournamentService struct {
	repo      repository.TournamentRepository
	clubs     ClubResolver
	courts    CourtFinder
	allocator Allocator
	validator *validation.Validator
	clock     clock.Clock
	cfg       *config.Config
}

func NewTournamentService(
	repo repository.TournamentRepository,
	clubs ClubResolver,
	courts CourtFinder,
	allocator Allocator,
	validator *validation.Validator,
	clk clock.Clock,
	cfg *config.Config,
) TournamentService {
	return &tournamentService{
		repo:      repo,
		clubs:     clubs,
		courts:    courts,
		allocator: allocator,
		validator: validator,
		clock:     clk,
		cfg:       cfg,
	}
}

// Allocate reserves every block of the tournament or none of them. Blocks
// are all held as pending before any is confirmed, so an allocation that
// dies halfway leaves only holds that expire on their own.
func (s *tournamentService) Allocate(ctx context.Context, clubID string, t *model.Tournament, requester model.Requester) (*model.Tournament, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	if !requester.CanOverride() {
		return nil, apperrors.Forbidden("Only club staff may schedule tournaments")
	}
	if err := s.validate(ctx, club, t); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t.ID = uuid.NewString()
	t.ClubID = club.ID
	t.OrganizerID = requester.ID
	t.Status = model.TournamentDraft
	t.ReservationIDs = nil
	t.CreatedAt = now
	t.UpdatedAt = now

	horizon := t.LastDate()
	held := make([]*model.Reservation, 0, len(t.Blocks))
	for i, block := range t.Blocks {
		claim := model.ReservationClaim{
			Slot:          block,
			RequesterID:   requester.ID,
			RequestKey:    fmt.Sprintf("tournament:%s:%d", t.ID, i),
			Source:        model.SourceTournament,
			BookableUntil: horizon,
			TournamentID:  t.ID,
		}
		r, err := s.allocator.Reserve(ctx, club, claim)
		if err != nil {
			s.cfg.Log.Info("Tournament block unavailable, rolling back",
				"tournament_id", t.ID,
				"block", i,
				"slot", block.Label(),
				"error", err,
			)
			s.releaseAll(ctx, club, held, requester.ID)
			return nil, blockError(err, i)
		}
		held = append(held, r)
	}

	for i, r := range held {
		confirmed, err := s.allocator.Confirm(ctx, club, r)
		if err != nil {
			s.releaseAll(ctx, club, held, requester.ID)
			return nil, blockError(err, i)
		}
		t.ReservationIDs = append(t.ReservationIDs, confirmed.ID)
	}

	t.Status = model.TournamentScheduled
	if err := s.repo.Create(ctx, t); err != nil {
		s.cfg.Log.Error("Failed to store tournament", "tournament_id", t.ID, "error", err)
		s.releaseAll(ctx, club, held, requester.ID)
		return nil, storeError("create tournament", err)
	}

	s.cfg.Log.Info("Tournament scheduled",
		"tournament_id", t.ID,
		"club_id", club.ID,
		"blocks", len(t.Blocks),
		"format", t.Format.Kind,
	)
	return t, nil
}

// Cancel releases every block. Releasing is idempotent, so a cancel that
// failed partway can simply be repeated.
func (s *tournamentService) Cancel(ctx context.Context, clubID, id string, requester model.Requester) (*model.Tournament, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	if !requester.CanOverride() {
		return nil, apperrors.Forbidden("Only club staff may cancel tournaments")
	}

	t, err := s.repo.FindByID(ctx, club.ID, id)
	if err != nil {
		return nil, storeError("load tournament", err)
	}
	if t.Status == model.TournamentCancelled {
		return t, nil
	}

	for _, reservationID := range t.ReservationIDs {
		if err := s.allocator.Release(ctx, club, reservationID, requester.ID); err != nil {
			s.cfg.Log.Error("Failed to release tournament block",
				"tournament_id", t.ID,
				"reservation_id", reservationID,
				"error", err,
			)
			return nil, err
		}
	}

	now := s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, t.ID, model.TournamentCancelled, now); err != nil {
		return nil, storeError("cancel tournament", err)
	}
	t.Status = model.TournamentCancelled
	t.UpdatedAt = now

	s.cfg.Log.Info("Tournament cancelled", "tournament_id", t.ID, "released", len(t.ReservationIDs))
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, clubID, id string) (*model.Tournament, error) {
	club, err := s.club(clubID)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.FindByID(ctx, club.ID, id)
	if err != nil {
		return nil, storeError("load tournament", err)
	}
	return t, nil
}

func (s *tournamentService) validate(ctx context.Context, club *model.Club, t *model.Tournament) error {
	if err := s.validator.Struct(t); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Invalid tournament", verrs.Details())
		}
		return apperrors.InvalidInput(err.Error())
	}
	if err := t.Format.Check(); err != nil {
		return apperrors.Validation("Invalid tournament format", map[string]any{"format": err.Error()})
	}

	checked := make(map[string]bool)
	for _, block := range t.Blocks {
		if checked[block.ResourceID] {
			continue
		}
		court, err := s.courts.FindByID(ctx, club.ID, block.ResourceID)
		if err != nil {
			if errors.Is(err, courtserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Court", block.ResourceID)
			}
			return storeError("load court", err)
		}
		if !court.Active {
			return apperrors.Validation("Court is not open for booking", map[string]any{"resource_id": court.ID})
		}
		checked[block.ResourceID] = true
	}
	return nil
}

func (s *tournamentService) releaseAll(ctx context.Context, club *model.Club, held []*model.Reservation, by string) {
	for _, r := range held {
		if err := s.allocator.Release(ctx, club, r.ID, by); err != nil {
			s.cfg.Log.Error("Failed to release tournament block", "reservation_id", r.ID, "error", err)
		}
	}
}

func (s *tournamentService) club(clubID string) (*model.Club, error) {
	club, err := s.clubs.Club(clubID)
	if err != nil {
		if errors.Is(err, clubs.ErrClubNotFound) {
			return nil, apperrors.NotFoundWithID("Club", clubID)
		}
		return nil, apperrors.Internal("Failed to resolve club", err)
	}
	return club, nil
}

// blockError tags a guard error with the index of the block it concerns.
func blockError(err error, block int) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	details := make(map[string]any, len(appErr.Details)+1)
	for k, v := range appErr.Details {
		details[k] = v
	}
	details["block"] = block
	return appErr.WithDetails(details)
}

func storeError(op string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, tournamenterrors.ErrNotFound):
		return apperrors.NotFound("Tournament")
	case errors.Is(err, tournamenterrors.ErrAlreadyExists):
		return apperrors.Conflict("Tournament already exists")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.StoreTimeout(op, err)
	default:
		return apperrors.Internal("Failed to "+op, err)
	}
}
