package service

import (
	"context"
	"courtkeeper/internal/availability"
	"courtkeeper/internal/clubs"
	courtsrepository "courtkeeper/internal/courts/repository"
	entitlementsrepository "courtkeeper/internal/entitlements/repository"
	"courtkeeper/internal/entitlements/resolver"
	"courtkeeper/internal/reservations/repository"
	"courtkeeper/internal/reservations/validator"
	"courtkeeper/pkg/clock"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"courtkeeper/pkg/validation"
	"fmt"
	"sync"
	"testing"
	"time"
)

// 10:00 in Berlin on Monday 2026-05-04.
var start = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type catalogStub map[string]*model.Club

func (c catalogStub) Club(id string) (*model.Club, error) {
	club, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", clubs.ErrClubNotFound, id)
	}
	return club, nil
}

type mapStore struct {
	mu          sync.Mutex
	entries     map[string][]byte
	generations map[string]int64
}

func (m *mapStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bs, ok := m.entries[key]
	return bs, ok, nil
}

func (m *mapStore) Generation(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[key], nil
}

func (m *mapStore) SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[key] != gen {
		return false, nil
	}
	m.entries[key] = value
	return true, nil
}

func (m *mapStore) Invalidate(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[key]++
	delete(m.entries, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ReservationEventType
}

func (p *recordingPublisher) Publish(ctx context.Context, event *model.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.EventType)
	return nil
}

func (p *recordingPublisher) types() []model.ReservationEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ReservationEventType(nil), p.events...)
}

type harness struct {
	club         *model.Club
	clock        *clock.Fake
	repo         repository.ReservationRepository
	entitlements *entitlementsrepository.MemoryEntitlementRepository
	publisher    *recordingPublisher
	guard        *ConflictGuard
	lifecycle    *Lifecycle
	service      BookingService
}

func testClub() *model.Club {
	return &model.Club{
		ID:       "riverside",
		Name:     "Riverside Tennis Club",
		Timezone: "Europe/Berlin",
		Rules: model.ClubRules{
			AdvanceBookingDays:        14,
			CancellationDeadlineHours: 24,
			MaxBookingsPerUser:        3,
			SlotDurations:             []int{60, 90},
			OpensAt:                   model.NewDayTime(7, 0),
			ClosesAt:                  model.NewDayTime(22, 0),
			HoldMinutes:               15,
		},
	}
}

func newHarness(t *testing.T, mutate func(*model.Club), wrap func(repository.ReservationRepository) repository.ReservationRepository) *harness {
	t.Helper()

	club := testClub()
	if mutate != nil {
		mutate(club)
	}

	log := logger.Discard()
	cfg := &config.Config{
		AvailabilityTTL: time.Minute,
		CachePrefix:     "test:",
		CacheOpTimeout:  100 * time.Millisecond,
		Log:             log,
	}

	clk := clock.NewFake(start)
	var repo repository.ReservationRepository = repository.NewMemoryReservationRepository()
	if wrap != nil {
		repo = wrap(repo)
	}

	courts := courtsrepository.NewMemoryCourtRepository()
	for _, id := range []string{"court-1", "court-2"} {
		if err := courts.Upsert(context.Background(), &model.Court{ID: id, ClubID: club.ID, Name: id, Surface: model.SurfaceClay, Active: true}); err != nil {
			t.Fatalf("seed court: %v", err)
		}
	}
	if err := courts.Upsert(context.Background(), &model.Court{ID: "court-closed", ClubID: club.ID, Name: "closed", Surface: model.SurfaceHard}); err != nil {
		t.Fatalf("seed court: %v", err)
	}

	entitlements := entitlementsrepository.NewMemoryEntitlementRepository()
	cache := availability.NewCache(&mapStore{entries: map[string][]byte{}, generations: map[string]int64{}}, repo, clk, cfg)
	publisher := &recordingPublisher{}
	policy := clubs.NewPolicy(clk)

	guard := NewConflictGuard(repo, policy, cache, clk, log)
	lifecycle := NewLifecycle(repo, cache, publisher, clk, log)

	svc := NewBookingService(Deps{
		Clubs:        catalogStub{club.ID: club},
		Courts:       courts,
		Repo:         repo,
		Access:       resolver.NewResolver(entitlements),
		Policy:       policy,
		Guard:        guard,
		Lifecycle:    lifecycle,
		Availability: cache,
		Validator:    validator.NewReservationValidator(validation.New(log)),
		Clock:        clk,
	}, cfg)

	return &harness{
		club:         club,
		clock:        clk,
		repo:         repo,
		entitlements: entitlements,
		publisher:    publisher,
		guard:        guard,
		lifecycle:    lifecycle,
		service:      svc,
	}
}

func member(id string) model.Requester {
	return model.Requester{ID: id, Role: model.RoleMember}
}

var staff = model.Requester{ID: "desk", Role: model.RoleStaff}

func request(court, date, from, to string) *model.BookingRequest {
	s, _ := model.ParseDayTime(from)
	e, _ := model.ParseDayTime(to)
	return &model.BookingRequest{TimeSlot: model.TimeSlot{ResourceID: court, Date: date, Start: s, End: e}}
}

func (h *harness) book(t *testing.T, who model.Requester, req *model.BookingRequest) *model.Reservation {
	t.Helper()
	r, _, err := h.service.RequestBooking(context.Background(), h.club.ID, req, who)
	if err != nil {
		t.Fatalf("booking %s failed: %v", req.Label(), err)
	}
	return r
}

// isFree reports whether [start, end) lies inside a single free segment.
func isFree(a *model.Availability, start, end model.DayTime) bool {
	for _, s := range a.Segments {
		if !s.Busy && s.Start <= start && end <= s.End {
			return true
		}
	}
	return false
}
