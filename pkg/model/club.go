package model

import "time"

type Role string

const (
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
	RoleStaff  Role = "staff"
)

type Requester struct {
	ID   string `json:"id" validate:"required,max=64"`
	Role Role   `json:"role" validate:"required,oneof=member guest staff"`
}

// CanOverride reports whether the requester may act on reservations owned
// by someone else.
func (r Requester) CanOverride() bool {
	return r.Role == RoleStaff
}

type ClubRules struct {
	AdvanceBookingDays        int     `yaml:"advance_booking_days" json:"advance_booking_days" validate:"min=0,max=365"`
	CancellationDeadlineHours int     `yaml:"cancellation_deadline_hours" json:"cancellation_deadline_hours" validate:"min=0,max=168"`
	MaxBookingsPerUser        int     `yaml:"max_bookings_per_user" json:"max_bookings_per_user" validate:"min=1,max=100"`
	AllowGuestBookings        bool    `yaml:"allow_guest_bookings" json:"allow_guest_bookings"`
	RequirePayment            bool    `yaml:"require_payment" json:"require_payment"`
	MembersOnly               bool    `yaml:"members_only" json:"members_only"`
	SlotDurations             []int   `yaml:"slot_durations" json:"slot_durations" validate:"required,min=1,dive,min=5,max=1440"`
	OpensAt                   DayTime `yaml:"opens_at" json:"opens_at" validate:"day_time"`
	ClosesAt                  DayTime `yaml:"closes_at" json:"closes_at" validate:"day_time,gtfield=OpensAt"`
	HoldMinutes               int     `yaml:"hold_minutes" json:"hold_minutes" validate:"min=1,max=1440"`
}

func (r ClubRules) HoldWindow() time.Duration {
	return time.Duration(r.HoldMinutes) * time.Minute
}

func (r ClubRules) CancellationDeadline() time.Duration {
	return time.Duration(r.CancellationDeadlineHours) * time.Hour
}

func (r ClubRules) AllowsDuration(minutes int) bool {
	for _, d := range r.SlotDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

// SlotGranularity is the grid, anchored at opening time, that slot starts
// must sit on: the greatest common divisor of the allowed durations.
func (r ClubRules) SlotGranularity() int {
	g := 0
	for _, d := range r.SlotDurations {
		g = gcd(g, d)
	}
	if g <= 0 {
		return 1
	}
	return g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

type Club struct {
	ID       string    `yaml:"id" json:"id" validate:"required,max=64"`
	Name     string    `yaml:"name" json:"name" validate:"required,min=2,max=120"`
	Timezone string    `yaml:"timezone" json:"timezone" validate:"required,timezone"`
	Currency string    `yaml:"currency" json:"currency" validate:"omitempty,iso4217"`
	Rules    ClubRules `yaml:"rules" json:"rules"`

	location *time.Location
}

// Location returns the club's time zone, falling back to UTC when the zone
// cannot be loaded.
func (c *Club) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveLocation loads and pins the club's time zone.
func (c *Club) ResolveLocation() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return err
	}
	c.location = loc
	return nil
}

// Today is the current date in the club's time zone.
func (c *Club) Today(now time.Time) string {
	return DateOf(now, c.Location())
}
