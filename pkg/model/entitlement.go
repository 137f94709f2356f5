package model

import (
	"slices"
	"time"
)

type EntitlementKind string

const (
	EntitlementMembership EntitlementKind = "membership"
	EntitlementSeasonPass EntitlementKind = "season_pass"
)

type AccessKind string

const (
	AccessUnrestricted AccessKind = "unrestricted"
	AccessWindowed     AccessKind = "restricted"
)

// AccessWindow limits access to certain weekdays and times of day.
type AccessWindow struct {
	Weekdays []string `json:"weekdays" bson:"weekdays" validate:"required,min=1,dive,weekday_name"`
	Start    DayTime  `json:"start" bson:"start_min" validate:"day_time"`
	End      DayTime  `json:"end" bson:"end_min" validate:"day_time,gtfield=Start"`
}

// Covers reports whether the whole slot falls inside the window on the
// slot's weekday.
func (w AccessWindow) Covers(slot TimeSlot) bool {
	wd, err := WeekdayOf(slot.Date)
	if err != nil {
		return false
	}
	onDay := false
	for _, name := range w.Weekdays {
		if d, ok := ParseWeekday(name); ok && d == wd {
			onDay = true
			break
		}
	}
	return onDay && slot.Start >= w.Start && slot.End <= w.End
}

// AccessRule is either unrestricted or restricted to a set of windows.
type AccessRule struct {
	Kind    AccessKind     `json:"kind" bson:"kind" validate:"required,oneof=unrestricted restricted"`
	Windows []AccessWindow `json:"windows,omitempty" bson:"windows,omitempty" validate:"required_if=Kind restricted,excluded_if=Kind unrestricted,dive"`
}

type Entitlement struct {
	ID                string          `json:"id" bson:"_id"`
	ClubID            string          `json:"club_id" bson:"club_id" validate:"required"`
	UserID            string          `json:"user_id" bson:"user_id" validate:"required"`
	Kind              EntitlementKind `json:"kind" bson:"kind" validate:"required,oneof=membership season_pass"`
	ValidFrom         string          `json:"valid_from" bson:"valid_from" validate:"required,iso_date"`
	ValidUntil        string          `json:"valid_until" bson:"valid_until" validate:"required,iso_date"`
	Access            AccessRule      `json:"access" bson:"access"`
	ResourceIDs       []string        `json:"resource_ids,omitempty" bson:"resource_ids,omitempty"`
	MaxActiveBookings *int            `json:"max_active_bookings,omitempty" bson:"max_active_bookings,omitempty" validate:"omitempty,min=1,max=100"`
	DiscountPercent   int             `json:"discount_percent,omitempty" bson:"discount_percent,omitempty" validate:"min=0,max=100"`
	SeasonPassID      string          `json:"season_pass_id,omitempty" bson:"season_pass_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at" bson:"created_at"`
}

// ValidOn compares ISO dates lexically, which orders them chronologically.
func (e *Entitlement) ValidOn(date string) bool {
	return e.ValidFrom <= date && date <= e.ValidUntil
}

func (e *Entitlement) CoversResource(resourceID string) bool {
	return len(e.ResourceIDs) == 0 || slices.Contains(e.ResourceIDs, resourceID)
}

type AccessLevel string

const (
	AccessNone       AccessLevel = "none"
	AccessRestricted AccessLevel = "restricted"
	AccessAllowed    AccessLevel = "allowed"
)

func (l AccessLevel) rank() int {
	switch l {
	case AccessAllowed:
		return 2
	case AccessRestricted:
		return 1
	default:
		return 0
	}
}

func (l AccessLevel) Outranks(other AccessLevel) bool {
	return l.rank() > other.rank()
}

// AccessDecision is the resolved access for one requester and slot together
// with the entitlement that granted it, if any.
type AccessDecision struct {
	Level       AccessLevel
	Entitlement *Entitlement
}

func (d AccessDecision) Granted() bool {
	return d.Level != AccessNone && d.Level != ""
}

// MaxActiveBookings returns the entitlement's override or fallback.
func (d AccessDecision) MaxActiveBookings(fallback int) int {
	if d.Entitlement != nil && d.Entitlement.MaxActiveBookings != nil {
		return *d.Entitlement.MaxActiveBookings
	}
	return fallback
}
