package model

import (
	"fmt"
	"time"
)

// TimeSlot is a half-open range [Start, End) on one court and one club-local
// date.
type TimeSlot struct {
	ResourceID string  `json:"resource_id" bson:"resource_id" db:"resource_id" validate:"required,max=64"`
	Date       string  `json:"date" bson:"date" db:"date" validate:"required,iso_date"`
	Start      DayTime `json:"start" bson:"start_min" db:"start_min" validate:"day_time"`
	End        DayTime `json:"end" bson:"end_min" db:"end_min" validate:"day_time,gtfield=Start"`
}

func (s TimeSlot) Minutes() int {
	return int(s.End - s.Start)
}

// Overlaps reports whether both slots claim a common instant on the same
// court and date. Touching endpoints do not overlap.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	if s.ResourceID != o.ResourceID || s.Date != o.Date {
		return false
	}
	return s.Start < o.End && o.Start < s.End
}

// Instants resolves the slot to absolute start and end instants in loc.
func (s TimeSlot) Instants(loc *time.Location) (time.Time, time.Time, error) {
	start, err := s.Start.At(s.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := s.End.At(s.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s TimeSlot) Label() string {
	return fmt.Sprintf("%s %s [%s-%s)", s.ResourceID, s.Date, s.Start, s.End)
}

// SlotKey identifies the partition within which active reservations must be
// pairwise disjoint.
func SlotKey(clubID, resourceID, date string) string {
	return clubID + "|" + resourceID + "|" + date
}
