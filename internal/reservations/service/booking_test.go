package service

import (
	"context"
	reservationerrors "courtkeeper/internal/reservations/errors"
	"courtkeeper/internal/reservations/repository"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/model"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ────────────────────────────────────────────────
// Conflict detection
// ────────────────────────────────────────────────

func TestRequestBooking_AdjacentAndOverlapping(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	first := h.book(t, member("ana"), request("court-1", "2026-05-05", "10:00", "11:00"))
	h.book(t, member("ben"), request("court-1", "2026-05-05", "11:00", "12:00"))

	_, _, err := h.service.RequestBooking(ctx, h.club.ID, request("court-1", "2026-05-05", "10:30", "11:30"), member("cleo"))
	if !apperrors.HasCode(err, apperrors.CodeOverlap) {
		t.Fatalf("expected SLOT_OVERLAP, got %v", err)
	}
	details := apperrors.AsAppError(err).Details
	if details["conflicting_reservation_id"] == nil {
		t.Errorf("expected the conflicting reservation to be named, got %v", details)
	}

	// Same slot on another court is independent.
	h.book(t, member("cleo"), request("court-2", "2026-05-05", "10:30", "11:30"))

	if first.Status != model.StatusConfirmed {
		t.Errorf("expected auto-confirmation without payment, got %s", first.Status)
	}
}

func TestRequestBooking_SelfOverlapConflicts(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.book(t, member("ana"), request("court-1", "2026-05-05", "10:00", "11:00"))
	_, _, err := h.service.RequestBooking(context.Background(), h.club.ID, request("court-1", "2026-05-05", "10:00", "11:30"), member("ana"))
	if !apperrors.HasCode(err, apperrors.CodeOverlap) {
		t.Fatalf("expected SLOT_OVERLAP, got %v", err)
	}
}

func TestRequestBooking_ConcurrentAttemptsStayDisjoint(t *testing.T) {
	h := newHarness(t, func(c *model.Club) { c.Rules.MaxBookingsPerUser = 100 }, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	type attempt struct {
		req *model.BookingRequest
		who model.Requester
	}
	attempts := make([]attempt, 200)
	for i := range attempts {
		startMin := 7*60 + 30*rng.Intn(26)
		length := []int{60, 90}[rng.Intn(2)]
		if startMin+length > 22*60 {
			startMin = 22*60 - length
		}
		attempts[i] = attempt{
			req: &model.BookingRequest{TimeSlot: model.TimeSlot{
				ResourceID: []string{"court-1", "court-2"}[rng.Intn(2)],
				Date:       "2026-05-05",
				Start:      model.DayTime(startMin),
				End:        model.DayTime(startMin + length),
			}},
			who: member(fmt.Sprintf("m%d", i)),
		}
	}

	var wg sync.WaitGroup
	for _, a := range attempts {
		wg.Add(1)
		go func(a attempt) {
			defer wg.Done()
			_, _, err := h.service.RequestBooking(ctx, h.club.ID, a.req, a.who)
			if err != nil && !apperrors.HasCode(err, apperrors.CodeOverlap) {
				t.Errorf("unexpected error for %s: %v", a.req.Label(), err)
			}
		}(a)
	}
	wg.Wait()

	for _, court := range []string{"court-1", "court-2"} {
		active, err := h.repo.FindActiveBySlot(ctx, h.club.ID, court, "2026-05-05")
		if err != nil {
			t.Fatalf("list active: %v", err)
		}
		if len(active) == 0 {
			t.Errorf("expected some bookings on %s", court)
		}
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				if active[i].TimeSlot.Overlaps(active[j].TimeSlot) {
					t.Fatalf("active reservations overlap: %s and %s", active[i].Label(), active[j].Label())
				}
			}
		}
	}
}

// ────────────────────────────────────────────────
// Idempotent retries
// ────────────────────────────────────────────────

// timeoutAfterCommit stores the reservation and then reports a timeout, the
// way a write acknowledged too late looks to the caller.
type timeoutAfterCommit struct {
	repository.ReservationRepository
	mu       sync.Mutex
	failNext bool
}

func (r *timeoutAfterCommit) InsertIfNoOverlap(ctx context.Context, res *model.Reservation) (*model.Reservation, bool, error) {
	stored, created, err := r.ReservationRepository.InsertIfNoOverlap(ctx, res)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil && r.failNext {
		r.failNext = false
		return nil, false, fmt.Errorf("insert reservation: %w: %w", reservationerrors.ErrStoreTimeout, context.DeadlineExceeded)
	}
	return stored, created, err
}

func TestRequestBooking_RetryAfterTimeoutYieldsOneReservation(t *testing.T) {
	flaky := &timeoutAfterCommit{failNext: true}
	h := newHarness(t, func(c *model.Club) { c.Rules.MaxBookingsPerUser = 1 }, func(inner repository.ReservationRepository) repository.ReservationRepository {
		flaky.ReservationRepository = inner
		return flaky
	})
	ctx := context.Background()

	req := request("court-1", "2026-05-05", "10:00", "11:00")
	req.RequestKey = "retry-key-1"

	_, _, err := h.service.RequestBooking(ctx, h.club.ID, req, member("ana"))
	if !apperrors.HasCode(err, apperrors.CodeStoreTimeout) {
		t.Fatalf("expected STORE_TIMEOUT, got %v", err)
	}
	if !apperrors.AsAppError(err).Retryable() {
		t.Error("expected the timeout to be retryable")
	}

	r, created, err := h.service.RequestBooking(ctx, h.club.ID, req, member("ana"))
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if created {
		t.Error("expected the retry to replay the stored reservation")
	}
	if r.Status != model.StatusConfirmed {
		t.Errorf("expected the replayed reservation to be confirmed, got %s", r.Status)
	}

	active, _ := h.repo.FindActiveBySlot(ctx, h.club.ID, "court-1", "2026-05-05")
	if len(active) != 1 {
		t.Fatalf("expected exactly one reservation, got %d", len(active))
	}
}

func TestRequestBooking_RequestKeyOfAnotherRequester(t *testing.T) {
	h := newHarness(t, nil, nil)

	req := request("court-1", "2026-05-05", "10:00", "11:00")
	req.RequestKey = "shared"
	h.book(t, member("ana"), req)

	_, _, err := h.service.RequestBooking(context.Background(), h.club.ID, req, member("ben"))
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestRequestBooking_RequestKeyWithDifferentSlot(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	first := request("court-1", "2026-05-05", "10:00", "11:00")
	first.RequestKey = "key-1"
	original := h.book(t, member("ana"), first)

	tests := []struct {
		name string
		req  *model.BookingRequest
	}{
		{name: "other time", req: request("court-1", "2026-05-05", "12:00", "13:00")},
		{name: "other court", req: request("court-2", "2026-05-05", "10:00", "11:00")},
		{name: "other date", req: request("court-1", "2026-05-06", "10:00", "11:00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.RequestKey = "key-1"
			_, _, err := h.service.RequestBooking(ctx, h.club.ID, tt.req, member("ana"))
			if !apperrors.HasCode(err, apperrors.CodeConflict) {
				t.Fatalf("expected CONFLICT, got %v", err)
			}
		})
	}

	replayed, created, err := h.service.RequestBooking(ctx, h.club.ID, first, member("ana"))
	if err != nil || created || replayed.ID != original.ID {
		t.Errorf("expected the identical request to replay %s, got %v created=%v err=%v", original.ID, replayed, created, err)
	}
}

func TestTryReserve_RequestKeyWithDifferentSlot(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	claim := model.ReservationClaim{
		Slot:        request("court-1", "2026-05-05", "10:00", "11:00").TimeSlot,
		RequesterID: "ana",
		RequestKey:  "key-1",
		Source:      model.SourceMember,
	}
	if _, created, err := h.guard.TryReserve(ctx, h.club, claim); err != nil || !created {
		t.Fatalf("first reserve: created=%v err=%v", created, err)
	}

	claim.Slot = request("court-1", "2026-05-05", "15:00", "16:00").TimeSlot
	_, _, err := h.guard.TryReserve(ctx, h.club, claim)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}

	active, _ := h.repo.FindActiveBySlot(ctx, h.club.ID, "court-1", "2026-05-05")
	if len(active) != 1 {
		t.Errorf("expected one reservation, got %d", len(active))
	}
}

// ────────────────────────────────────────────────
// Request checks
// ────────────────────────────────────────────────

func TestRequestBooking_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.Club)
		clubID   string
		who      model.Requester
		req      *model.BookingRequest
		wantCode string
	}{
		{name: "unknown club", clubID: "nowhere", who: member("ana"), req: request("court-1", "2026-05-05", "10:00", "11:00"), wantCode: apperrors.CodeNotFound},
		{name: "unknown court", who: member("ana"), req: request("court-9", "2026-05-05", "10:00", "11:00"), wantCode: apperrors.CodeNotFound},
		{name: "inactive court", who: member("ana"), req: request("court-closed", "2026-05-05", "10:00", "11:00"), wantCode: apperrors.CodeValidation},
		{name: "malformed date", who: member("ana"), req: request("court-1", "05.05.2026", "10:00", "11:00"), wantCode: apperrors.CodeValidation},
		{name: "unknown role", who: model.Requester{ID: "x", Role: "owner"}, req: request("court-1", "2026-05-05", "10:00", "11:00"), wantCode: apperrors.CodeValidation},
		{name: "exactly at the advance limit", who: member("ana"), req: request("court-1", "2026-05-18", "10:00", "11:00")},
		{name: "one day too far", who: member("ana"), req: request("court-1", "2026-05-19", "10:00", "11:00"), wantCode: apperrors.CodeTooFarInAdvance},
		{name: "odd duration", who: member("ana"), req: request("court-1", "2026-05-05", "10:00", "10:45"), wantCode: apperrors.CodeSlotDurationInvalid},
		{name: "guest", who: model.Requester{ID: "g", Role: model.RoleGuest}, req: request("court-1", "2026-05-05", "10:00", "11:00"), wantCode: apperrors.CodeGuestsNotAllowed},
		{
			name:     "members only",
			mutate:   func(c *model.Club) { c.Rules.MembersOnly = true },
			who:      member("ana"),
			req:      request("court-1", "2026-05-05", "10:00", "11:00"),
			wantCode: apperrors.CodeEntitlementRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.mutate, nil)
			clubID := h.club.ID
			if tt.clubID != "" {
				clubID = tt.clubID
			}

			_, _, err := h.service.RequestBooking(context.Background(), clubID, tt.req, tt.who)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestRequestBooking_MaxActiveBookings(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	h.book(t, member("ana"), request("court-1", "2026-05-05", "08:00", "09:00"))
	h.book(t, member("ana"), request("court-1", "2026-05-05", "10:00", "11:00"))
	third := h.book(t, member("ana"), request("court-1", "2026-05-05", "12:00", "13:00"))

	_, _, err := h.service.RequestBooking(ctx, h.club.ID, request("court-1", "2026-05-05", "14:00", "15:00"), member("ana"))
	if !apperrors.HasCode(err, apperrors.CodeTooManyActiveBookings) {
		t.Fatalf("expected TOO_MANY_ACTIVE_BOOKINGS, got %v", err)
	}

	if _, err := h.service.CancelBooking(ctx, h.club.ID, third.ID, member("ana")); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	h.book(t, member("ana"), request("court-1", "2026-05-05", "14:00", "15:00"))
}

func TestRequestBooking_EntitlementOverridesLimitAndDiscount(t *testing.T) {
	h := newHarness(t, func(c *model.Club) {
		c.Rules.MembersOnly = true
		c.Rules.MaxBookingsPerUser = 1
	}, nil)
	ctx := context.Background()

	limit := 2
	err := h.entitlements.Create(ctx, &model.Entitlement{
		ID:                "m-ana",
		ClubID:            h.club.ID,
		UserID:            "ana",
		Kind:              model.EntitlementMembership,
		ValidFrom:         "2026-01-01",
		ValidUntil:        "2026-12-31",
		Access:            model.AccessRule{Kind: model.AccessUnrestricted},
		MaxActiveBookings: &limit,
		DiscountPercent:   20,
	})
	if err != nil {
		t.Fatalf("create entitlement: %v", err)
	}

	first := h.book(t, member("ana"), request("court-1", "2026-05-05", "10:00", "11:00"))
	if first.EntitlementID != "m-ana" || first.DiscountPercent != 20 {
		t.Errorf("expected the membership to be recorded, got %s/%d", first.EntitlementID, first.DiscountPercent)
	}
	h.book(t, member("ana"), request("court-1", "2026-05-05", "11:00", "12:00"))

	_, _, err = h.service.RequestBooking(ctx, h.club.ID, request("court-1", "2026-05-05", "12:00", "13:00"), member("ana"))
	if !apperrors.HasCode(err, apperrors.CodeTooManyActiveBookings) {
		t.Fatalf("expected TOO_MANY_ACTIVE_BOOKINGS, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Availability
// ────────────────────────────────────────────────

func TestGetAvailability_ReflectsCancellation(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	r := h.book(t, member("ana"), request("court-1", "2026-05-05", "10:00", "11:00"))

	before, err := h.service.GetAvailability(ctx, h.club.ID, "court-1", "2026-05-05")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	want := []model.AvailabilitySegment{
		{Start: model.NewDayTime(7, 0), End: model.NewDayTime(10, 0)},
		{Start: model.NewDayTime(10, 0), End: model.NewDayTime(11, 0), Busy: true},
		{Start: model.NewDayTime(11, 0), End: model.NewDayTime(22, 0)},
	}
	if diff := cmp.Diff(want, before.Segments); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	if _, err := h.service.CancelBooking(ctx, h.club.ID, r.ID, member("ana")); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	after, err := h.service.GetAvailability(ctx, h.club.ID, "court-1", "2026-05-05")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !isFree(after, model.NewDayTime(10, 0), model.NewDayTime(11, 0)) {
		t.Errorf("expected the cancelled slot to be free, got %+v", after.Segments)
	}
}

func TestGetAvailability_Rejections(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	if _, err := h.service.GetAvailability(ctx, h.club.ID, "court-1", "tomorrow"); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	if _, err := h.service.GetAvailability(ctx, h.club.ID, "court-9", "2026-05-05"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Reads
// ────────────────────────────────────────────────

func TestGetByID_Ownership(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	r := h.book(t, member("ana"), request("court-1", "2026-05-05", "10:00", "11:00"))

	if _, err := h.service.GetByID(ctx, h.club.ID, r.ID, member("ana")); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := h.service.GetByID(ctx, h.club.ID, r.ID, staff); err != nil {
		t.Errorf("staff lookup failed: %v", err)
	}
	if _, err := h.service.GetByID(ctx, h.club.ID, r.ID, member("ben")); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
	if _, err := h.service.GetByID(ctx, h.club.ID, "missing", staff); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestListByRequester(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	h.book(t, member("ana"), request("court-1", "2026-05-05", "10:00", "11:00"))
	later := h.book(t, member("ana"), request("court-1", "2026-05-06", "10:00", "11:00"))
	h.book(t, member("ben"), request("court-1", "2026-05-05", "12:00", "13:00"))

	list, total, err := h.service.ListByRequester(ctx, h.club.ID, member("ana"), 1, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
	if len(list) != 1 || list[0].ID != later.ID {
		t.Errorf("expected the latest reservation first, got %v", list)
	}
}

func TestStoreErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantCode string
	}{
		{err: fmt.Errorf("x: %w: %w", reservationerrors.ErrStoreTimeout, context.DeadlineExceeded), wantCode: apperrors.CodeStoreTimeout},
		{err: fmt.Errorf("x: %w", reservationerrors.ErrStoreUnavailable), wantCode: apperrors.CodeStoreUnavailable},
		{err: reservationerrors.ErrNotFound, wantCode: apperrors.CodeNotFound},
		{err: errors.New("boom"), wantCode: apperrors.CodeInternal},
		{err: apperrors.SlotInPast(), wantCode: apperrors.CodeSlotInPast},
	}
	for _, tt := range tests {
		if got := storeError("op", tt.err); !apperrors.HasCode(got, tt.wantCode) {
			t.Errorf("storeError(%v): expected %s, got %v", tt.err, tt.wantCode, got)
		}
	}
}
