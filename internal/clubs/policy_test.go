package clubs

import (
	"courtkeeper/pkg/clock"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/model"
	"testing"
	"time"
)

// 10:00 in Berlin on Monday 2026-05-04.
var now = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

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

func slot(date string, start, end string) model.TimeSlot {
	s, _ := model.ParseDayTime(start)
	e, _ := model.ParseDayTime(end)
	return model.TimeSlot{ResourceID: "court-1", Date: date, Start: s, End: e}
}

func TestValidateSlot(t *testing.T) {
	policy := NewPolicy(clock.NewFake(now))

	tests := []struct {
		name          string
		slot          model.TimeSlot
		bookableUntil string
		wantCode      string
	}{
		{name: "later today", slot: slot("2026-05-04", "11:00", "12:00")},
		{name: "ninety minutes", slot: slot("2026-05-05", "07:00", "08:30")},
		{name: "starts now", slot: slot("2026-05-04", "10:00", "11:00")},
		{name: "already started", slot: slot("2026-05-04", "09:00", "10:00"), wantCode: apperrors.CodeSlotInPast},
		{name: "exactly at the advance limit", slot: slot("2026-05-18", "10:00", "11:00")},
		{name: "one day past the advance limit", slot: slot("2026-05-19", "10:00", "11:00"), wantCode: apperrors.CodeTooFarInAdvance},
		{name: "duration not offered", slot: slot("2026-05-05", "10:00", "10:45"), wantCode: apperrors.CodeSlotDurationInvalid},
		{name: "off the grid", slot: slot("2026-05-05", "10:15", "11:15"), wantCode: apperrors.CodeSlotDurationInvalid},
		{name: "before opening", slot: slot("2026-05-05", "06:00", "07:00"), wantCode: apperrors.CodeOutsideOperatingHours},
		{name: "past closing", slot: slot("2026-05-05", "21:30", "23:00"), wantCode: apperrors.CodeOutsideOperatingHours},
		{name: "end before start", slot: slot("2026-05-05", "11:00", "10:00"), wantCode: apperrors.CodeValidation},
		{name: "bad date", slot: slot("2026-13-40", "10:00", "11:00"), wantCode: apperrors.CodeValidation},
		{name: "extended window", slot: slot("2026-06-01", "10:00", "11:00"), bookableUntil: "2026-06-30"},
		{name: "past the extended window", slot: slot("2026-07-01", "10:00", "11:00"), bookableUntil: "2026-06-30", wantCode: apperrors.CodeTooFarInAdvance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.ValidateSlot(testClub(), tt.slot, tt.bookableUntil)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

// The advance window is counted in the club's calendar, not UTC.
func TestValidateSlot_AdvanceWindowUsesClubDate(t *testing.T) {
	// 23:30 UTC on 2026-05-04 is already 2026-05-05 in Berlin.
	policy := NewPolicy(clock.NewFake(time.Date(2026, 5, 4, 23, 30, 0, 0, time.UTC)))

	if err := policy.ValidateSlot(testClub(), slot("2026-05-19", "10:00", "11:00"), ""); err != nil {
		t.Fatalf("expected 14 days ahead in club time to be bookable, got %v", err)
	}
	err := policy.ValidateSlot(testClub(), slot("2026-05-20", "10:00", "11:00"), "")
	if !apperrors.HasCode(err, apperrors.CodeTooFarInAdvance) {
		t.Fatalf("expected TOO_FAR_IN_ADVANCE, got %v", err)
	}
}

func TestValidateRequest(t *testing.T) {
	policy := NewPolicy(clock.NewFake(now))
	five := 5
	member := model.Requester{ID: "u1", Role: model.RoleMember}
	guest := model.Requester{ID: "g1", Role: model.RoleGuest}
	allowed := model.AccessDecision{Level: model.AccessAllowed, Entitlement: &model.Entitlement{ID: "e1"}}
	generous := model.AccessDecision{Level: model.AccessAllowed, Entitlement: &model.Entitlement{ID: "e2", MaxActiveBookings: &five}}
	none := model.AccessDecision{Level: model.AccessNone}

	tests := []struct {
		name        string
		mutate      func(*model.Club)
		requester   model.Requester
		activeCount int64
		decision    model.AccessDecision
		wantCode    string
	}{
		{name: "member under the limit", requester: member, activeCount: 2, decision: none},
		{name: "member at the limit", requester: member, activeCount: 3, decision: none, wantCode: apperrors.CodeTooManyActiveBookings},
		{name: "entitlement raises the limit", requester: member, activeCount: 3, decision: generous},
		{name: "entitlement limit reached", requester: member, activeCount: 5, decision: generous, wantCode: apperrors.CodeTooManyActiveBookings},
		{name: "guest when guests are off", requester: guest, decision: none, wantCode: apperrors.CodeGuestsNotAllowed},
		{
			name:      "guest when guests are on",
			mutate:    func(c *model.Club) { c.Rules.AllowGuestBookings = true },
			requester: guest,
			decision:  none,
		},
		{
			name:      "members only without entitlement",
			mutate:    func(c *model.Club) { c.Rules.MembersOnly = true },
			requester: member,
			decision:  none,
			wantCode:  apperrors.CodeEntitlementRequired,
		},
		{
			name:      "members only with entitlement",
			mutate:    func(c *model.Club) { c.Rules.MembersOnly = true },
			requester: member,
			decision:  allowed,
		},
		{
			name:      "restricted access still counts",
			mutate:    func(c *model.Club) { c.Rules.MembersOnly = true },
			requester: member,
			decision:  model.AccessDecision{Level: model.AccessRestricted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			club := testClub()
			if tt.mutate != nil {
				tt.mutate(club)
			}
			err := policy.ValidateRequest(club, slot("2026-05-05", "10:00", "11:00"), tt.requester, tt.activeCount, tt.decision)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}
