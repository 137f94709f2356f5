package service

import (
	"context"
	"courtkeeper/internal/clubs"
	courtsrepository "courtkeeper/internal/courts/repository"
	"courtkeeper/internal/reservations/events"
	reservationsrepository "courtkeeper/internal/reservations/repository"
	reservationsservice "courtkeeper/internal/reservations/service"
	"courtkeeper/internal/tournaments/repository"
	"courtkeeper/pkg/clock"
	"courtkeeper/pkg/config"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"courtkeeper/pkg/validation"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// 10:00 in Berlin on Monday 2026-05-04.
var now = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

var (
	desk   = model.Requester{ID: "desk", Role: model.RoleStaff}
	member = model.Requester{ID: "anna", Role: model.RoleMember}
)

type catalogStub map[string]*model.Club

func (c catalogStub) Club(id string) (*model.Club, error) {
	club, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", clubs.ErrClubNotFound, id)
	}
	return club, nil
}

type nopCache struct{}

func (nopCache) Invalidate(ctx context.Context, clubID, resourceID, date string) {}

type fixture struct {
	club         *model.Club
	reservations *reservationsrepository.MemoryReservationRepository
	tournaments  *repository.MemoryTournamentRepository
	guard        *reservationsservice.ConflictGuard
	service      TournamentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	club := &model.Club{
		ID:       "riverside",
		Timezone: "Europe/Berlin",
		Rules: model.ClubRules{
			AdvanceBookingDays:        14,
			CancellationDeadlineHours: 24,
			MaxBookingsPerUser:        3,
			SlotDurations:             []int{60, 120},
			OpensAt:                   model.NewDayTime(7, 0),
			ClosesAt:                  model.NewDayTime(22, 0),
			HoldMinutes:               15,
		},
	}

	log := logger.Discard()
	clk := clock.NewFake(now)

	courts := courtsrepository.NewMemoryCourtRepository()
	for _, c := range []*model.Court{
		{ID: "court-1", ClubID: club.ID, Name: "Centre", Surface: model.SurfaceClay, Active: true},
		{ID: "court-2", ClubID: club.ID, Name: "Two", Surface: model.SurfaceClay, Active: true},
		{ID: "court-9", ClubID: club.ID, Name: "Closed", Surface: model.SurfaceHard},
	} {
		if err := courts.Upsert(context.Background(), c); err != nil {
			t.Fatalf("seed court: %v", err)
		}
	}

	reservations := reservationsrepository.NewMemoryReservationRepository()
	guard := reservationsservice.NewConflictGuard(reservations, clubs.NewPolicy(clk), nopCache{}, clk, log)
	lifecycle := reservationsservice.NewLifecycle(reservations, nopCache{}, events.NewNopPublisher(log), clk, log)
	tournaments := repository.NewMemoryTournamentRepository()

	svc := NewTournamentService(
		tournaments,
		catalogStub{club.ID: club},
		courts,
		reservationsservice.NewBlockAllocator(guard, lifecycle),
		validation.New(log),
		clk,
		&config.Config{Log: log},
	)

	return &fixture{
		club:         club,
		reservations: reservations,
		tournaments:  tournaments,
		guard:        guard,
		service:      svc,
	}
}

func slot(court, date, from, to string) model.TimeSlot {
	s, _ := model.ParseDayTime(from)
	e, _ := model.ParseDayTime(to)
	return model.TimeSlot{ResourceID: court, Date: date, Start: s, End: e}
}

func knockout(blocks ...model.TimeSlot) *model.Tournament {
	return &model.Tournament{
		Name: "Spring Open",
		Format: model.TournamentFormat{
			Kind:     model.FormatKnockout,
			Knockout: &model.KnockoutSettings{DrawSize: 16},
		},
		Blocks: blocks,
	}
}

func (f *fixture) statuses(t *testing.T, ids []string) []model.ReservationStatus {
	t.Helper()
	out := make([]model.ReservationStatus, 0, len(ids))
	for _, id := range ids {
		r, err := f.reservations.FindByID(context.Background(), id)
		if err != nil {
			t.Fatalf("find %s: %v", id, err)
		}
		out = append(out, r.Status)
	}
	return out
}

func TestAllocate_ConfirmsEveryBlock(t *testing.T) {
	f := newFixture(t)

	// Three weeks out is past the club's advance window; the last block
	// date sets the horizon instead.
	tournament, err := f.service.Allocate(context.Background(), f.club.ID, knockout(
		slot("court-1", "2026-05-23", "09:00", "11:00"),
		slot("court-2", "2026-05-23", "09:00", "11:00"),
		slot("court-1", "2026-05-24", "14:00", "16:00"),
	), desk)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	if tournament.Status != model.TournamentScheduled {
		t.Errorf("status = %s, want scheduled", tournament.Status)
	}
	want := []model.ReservationStatus{model.StatusConfirmed, model.StatusConfirmed, model.StatusConfirmed}
	if diff := cmp.Diff(want, f.statuses(t, tournament.ReservationIDs)); diff != "" {
		t.Errorf("block statuses mismatch (-want +got):\n%s", diff)
	}

	r, err := f.reservations.FindByID(context.Background(), tournament.ReservationIDs[2])
	if err != nil {
		t.Fatal(err)
	}
	if r.Source != model.SourceTournament || r.TournamentID != tournament.ID {
		t.Errorf("block not attributed to tournament: source=%s tournament_id=%s", r.Source, r.TournamentID)
	}
	if r.RequestKey != fmt.Sprintf("tournament:%s:2", tournament.ID) {
		t.Errorf("request key = %s", r.RequestKey)
	}

	stored, err := f.tournaments.FindByID(context.Background(), f.club.ID, tournament.ID)
	if err != nil {
		t.Fatalf("tournament not stored: %v", err)
	}
	if diff := cmp.Diff(tournament.ReservationIDs, stored.ReservationIDs); diff != "" {
		t.Errorf("stored reservation ids mismatch (-want +got):\n%s", diff)
	}
}

func TestAllocate_ConflictReleasesHeldBlocks(t *testing.T) {
	f := newFixture(t)

	existing, _, err := f.guard.TryReserve(context.Background(), f.club, model.ReservationClaim{
		Slot:        slot("court-2", "2026-05-06", "10:00", "11:00"),
		RequesterID: member.ID,
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	_, err = f.service.Allocate(context.Background(), f.club.ID, knockout(
		slot("court-1", "2026-05-06", "09:00", "11:00"),
		slot("court-2", "2026-05-06", "09:00", "11:00"),
	), desk)
	if !apperrors.HasCode(err, apperrors.CodeOverlap) {
		t.Fatalf("Allocate() error = %v, want overlap", err)
	}
	details := apperrors.AsAppError(err).Details
	if details["block"] != 1 || details["conflicting_reservation_id"] != existing.ID {
		t.Errorf("details = %v", details)
	}

	active, err := f.reservations.FindActiveBySlot(context.Background(), f.club.ID, "court-1", "2026-05-06")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("first block still active after rollback: %+v", active[0])
	}
}

func TestAllocate_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		tournament *model.Tournament
		requester  model.Requester
		wantCode   string
	}{
		{
			name:       "member",
			tournament: knockout(slot("court-1", "2026-05-06", "09:00", "11:00")),
			requester:  member,
			wantCode:   apperrors.CodeForbidden,
		},
		{
			name: "settings for wrong format",
			tournament: &model.Tournament{
				Name:   "Ladder",
				Format: model.TournamentFormat{Kind: model.FormatRoundRobin, Knockout: &model.KnockoutSettings{DrawSize: 8}},
				Blocks: []model.TimeSlot{slot("court-1", "2026-05-06", "09:00", "11:00")},
			},
			requester: desk,
			wantCode:  apperrors.CodeValidation,
		},
		{
			name:       "no blocks",
			tournament: knockout(),
			requester:  desk,
			wantCode:   apperrors.CodeValidation,
		},
		{
			name:       "closed court",
			tournament: knockout(slot("court-9", "2026-05-06", "09:00", "11:00")),
			requester:  desk,
			wantCode:   apperrors.CodeValidation,
		},
		{
			name:       "unknown court",
			tournament: knockout(slot("court-7", "2026-05-06", "09:00", "11:00")),
			requester:  desk,
			wantCode:   apperrors.CodeNotFound,
		},
		{
			name:       "blocks overlap each other",
			tournament: knockout(slot("court-1", "2026-05-06", "09:00", "11:00"), slot("court-1", "2026-05-06", "10:00", "11:00")),
			requester:  desk,
			wantCode:   apperrors.CodeOverlap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.service.Allocate(context.Background(), f.club.ID, tt.tournament, tt.requester)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("Allocate() error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestCancel_ReleasesBlocks(t *testing.T) {
	f := newFixture(t)

	tournament, err := f.service.Allocate(context.Background(), f.club.ID, knockout(
		slot("court-1", "2026-05-06", "09:00", "11:00"),
		slot("court-2", "2026-05-06", "09:00", "11:00"),
	), desk)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	if _, err := f.service.Cancel(context.Background(), f.club.ID, tournament.ID, member); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Errorf("member cancel error = %v, want forbidden", err)
	}

	cancelled, err := f.service.Cancel(context.Background(), f.club.ID, tournament.ID, desk)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != model.TournamentCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	want := []model.ReservationStatus{model.StatusCancelled, model.StatusCancelled}
	if diff := cmp.Diff(want, f.statuses(t, tournament.ReservationIDs)); diff != "" {
		t.Errorf("block statuses mismatch (-want +got):\n%s", diff)
	}

	again, err := f.service.Cancel(context.Background(), f.club.ID, tournament.ID, desk)
	if err != nil || again.Status != model.TournamentCancelled {
		t.Errorf("second Cancel() = %v, %v", again, err)
	}

	if _, err := f.service.Cancel(context.Background(), f.club.ID, "missing", desk); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing tournament error = %v, want not found", err)
	}
}
