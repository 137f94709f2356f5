package model

import "time"

type SeasonPassStatus string

const (
	SeasonPassActive  SeasonPassStatus = "active"
	SeasonPassRevoked SeasonPassStatus = "revoked"
)

type LedgerOutcome string

const (
	OutcomeBooked   LedgerOutcome = "booked"
	OutcomeConflict LedgerOutcome = "conflict"
	OutcomeReleased LedgerOutcome = "released"
)

// LedgerEntry records what happened to one weekly occurrence of a pass.
type LedgerEntry struct {
	Date          string        `json:"date" bson:"date"`
	ReservationID string        `json:"reservation_id,omitempty" bson:"reservation_id,omitempty"`
	Outcome       LedgerOutcome `json:"outcome" bson:"outcome"`
	Reason        string        `json:"reason,omitempty" bson:"reason,omitempty"`
	RecordedAt    time.Time     `json:"recorded_at" bson:"recorded_at"`
}

type SeasonPass struct {
	ID              string           `json:"id" bson:"_id"`
	ClubID          string           `json:"club_id" bson:"club_id"`
	HolderID        string           `json:"holder_id" bson:"holder_id" validate:"required,max=64"`
	ResourceID      string           `json:"resource_id" bson:"resource_id" validate:"required,max=64"`
	Weekday         string           `json:"weekday" bson:"weekday" validate:"required,weekday_name"`
	Start           DayTime          `json:"start" bson:"start_min" validate:"day_time"`
	End             DayTime          `json:"end" bson:"end_min" validate:"day_time,gtfield=Start"`
	ValidFrom       string           `json:"valid_from" bson:"valid_from" validate:"required,iso_date"`
	ValidUntil      string           `json:"valid_until" bson:"valid_until" validate:"required,iso_date"`
	DiscountPercent int              `json:"discount_percent,omitempty" bson:"discount_percent,omitempty" validate:"min=0,max=100"`
	EntitlementID   string           `json:"entitlement_id,omitempty" bson:"entitlement_id,omitempty"`
	Status          SeasonPassStatus `json:"status" bson:"status"`
	Entries         []LedgerEntry    `json:"entries,omitempty" bson:"entries,omitempty"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" bson:"updated_at"`
}

func (p *SeasonPass) SlotOn(date string) TimeSlot {
	return TimeSlot{ResourceID: p.ResourceID, Date: date, Start: p.Start, End: p.End}
}

func (p *SeasonPass) Booked() []LedgerEntry {
	var out []LedgerEntry
	for _, e := range p.Entries {
		if e.Outcome == OutcomeBooked {
			out = append(out, e)
		}
	}
	return out
}
