package clubs

import (
	"courtkeeper/pkg/clock"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/model"
	"fmt"
)

// Policy applies a club's booking rules to a requested slot. It holds no
// state besides the clock, so one Policy serves every club.
type Policy struct {
	clock clock.Clock
}

func NewPolicy(clk clock.Clock) *Policy {
	return &Policy{clock: clk}
}

// ValidateSlot checks the slot shape against the club's rules. bookableUntil,
// when set, replaces the advance booking window with an explicit last date.
func (p *Policy) ValidateSlot(club *model.Club, slot model.TimeSlot, bookableUntil string) error {
	rules := club.Rules

	if !slot.Start.Valid() || !slot.End.Valid() || slot.Start >= slot.End {
		return apperrors.Validation("Invalid time slot", map[string]any{
			"start": slot.Start.String(),
			"end":   slot.End.String(),
		})
	}

	if !rules.AllowsDuration(slot.Minutes()) {
		return apperrors.SlotDurationInvalid(
			fmt.Sprintf("A %d minute slot is not offered", slot.Minutes()),
			map[string]any{"allowed_minutes": rules.SlotDurations},
		)
	}

	if slot.Start < rules.OpensAt || slot.End > rules.ClosesAt {
		return apperrors.OutsideOperatingHours(rules.OpensAt.String(), rules.ClosesAt.String())
	}

	if grid := rules.SlotGranularity(); int(slot.Start-rules.OpensAt)%grid != 0 {
		return apperrors.SlotDurationInvalid(
			fmt.Sprintf("Slots start every %d minutes from %s", grid, rules.OpensAt),
			map[string]any{"granularity_minutes": grid},
		)
	}

	loc := club.Location()
	startsAt, _, err := slot.Instants(loc)
	if err != nil {
		return apperrors.Validation("Invalid date", map[string]any{"date": slot.Date})
	}

	now := p.clock.Now()
	if startsAt.Before(now) {
		return apperrors.SlotInPast()
	}

	if bookableUntil != "" {
		if slot.Date > bookableUntil {
			days, _ := model.DaysBetween(club.Today(now), bookableUntil)
			return apperrors.TooFarInAdvance(days, slot.Date)
		}
		return nil
	}

	days, err := model.DaysBetween(club.Today(now), slot.Date)
	if err != nil {
		return apperrors.Validation("Invalid date", map[string]any{"date": slot.Date})
	}
	if days > rules.AdvanceBookingDays {
		return apperrors.TooFarInAdvance(rules.AdvanceBookingDays, slot.Date)
	}

	return nil
}

// ValidateRequest runs the slot checks and the requester-specific rules.
// activeCount is the requester's current number of active reservations that
// have not yet ended.
func (p *Policy) ValidateRequest(club *model.Club, slot model.TimeSlot, requester model.Requester, activeCount int64, decision model.AccessDecision) error {
	if err := p.ValidateSlot(club, slot, ""); err != nil {
		return err
	}

	rules := club.Rules

	if requester.Role == model.RoleGuest && !rules.AllowGuestBookings {
		return apperrors.GuestsNotAllowed()
	}

	if rules.MembersOnly && !decision.Granted() {
		return apperrors.EntitlementRequired()
	}

	limit := decision.MaxActiveBookings(rules.MaxBookingsPerUser)
	if activeCount >= int64(limit) {
		return apperrors.TooManyActiveBookings(limit)
	}

	return nil
}
