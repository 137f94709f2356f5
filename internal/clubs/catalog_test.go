package clubs

import (
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"courtkeeper/pkg/validation"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const catalogYAML = `
clubs:
  - id: riverside
    name: Riverside Tennis Club
    timezone: Europe/Berlin
    currency: EUR
    rules:
      advance_booking_days: 14
      cancellation_deadline_hours: 24
      max_bookings_per_user: 3
      allow_guest_bookings: true
      require_payment: false
      members_only: false
      slot_durations: [60, 90]
      opens_at: "07:00"
      closes_at: "22:00"
      hold_minutes: 15
    courts:
      - id: court-1
        name: Centre Court
        surface: clay
        active: true
      - id: court-2
        name: Court 2
        surface: hard
        indoor: true
        active: true
`

func TestParseCatalog(t *testing.T) {
	v := validation.New(logger.Discard())

	catalog, err := ParseCatalog([]byte(catalogYAML), v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	club, err := catalog.Club("riverside")
	if err != nil {
		t.Fatalf("club lookup failed: %v", err)
	}

	want := model.ClubRules{
		AdvanceBookingDays:        14,
		CancellationDeadlineHours: 24,
		MaxBookingsPerUser:        3,
		AllowGuestBookings:        true,
		SlotDurations:             []int{60, 90},
		OpensAt:                   model.NewDayTime(7, 0),
		ClosesAt:                  model.NewDayTime(22, 0),
		HoldMinutes:               15,
	}
	if diff := cmp.Diff(want, club.Rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
	if club.Location().String() != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin, got %s", club.Location())
	}

	courts := catalog.Courts("riverside")
	if len(courts) != 2 {
		t.Fatalf("expected 2 courts, got %d", len(courts))
	}
	if courts[1].ClubID != "riverside" || !courts[1].Indoor {
		t.Errorf("unexpected court: %+v", courts[1])
	}

	if _, err := catalog.Club("unknown"); !errors.Is(err, ErrClubNotFound) {
		t.Errorf("expected ErrClubNotFound, got %v", err)
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	v := validation.New(logger.Discard())

	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{name: "unknown timezone", replace: [2]string{"Europe/Berlin", "Mars/Olympus"}, wantErr: "timezone"},
		{name: "closes before opening", replace: [2]string{`closes_at: "22:00"`, `closes_at: "06:00"`}, wantErr: "closes_at"},
		{name: "no durations", replace: [2]string{"slot_durations: [60, 90]", "slot_durations: []"}, wantErr: "slot_durations"},
		{name: "bad surface", replace: [2]string{"surface: clay", "surface: sand"}, wantErr: "surface"},
		{name: "malformed time", replace: [2]string{`opens_at: "07:00"`, `opens_at: "7am"`}, wantErr: "parse club catalog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strings.Replace(catalogYAML, tt.replace[0], tt.replace[1], 1)
			_, err := ParseCatalog([]byte(data), v)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}
