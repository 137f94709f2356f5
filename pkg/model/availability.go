package model

import (
	"sort"
	"time"
)

type AvailabilitySegment struct {
	Start DayTime `json:"start"`
	End   DayTime `json:"end"`
	Busy  bool    `json:"busy"`
}

// Availability is a derived free/busy map of one court on one date. It is
// never authoritative for booking decisions.
type Availability struct {
	ClubID     string                `json:"club_id"`
	ResourceID string                `json:"resource_id"`
	Date       string                `json:"date"`
	Segments   []AvailabilitySegment `json:"segments"`
	ComputedAt time.Time             `json:"computed_at"`
}

// BuildAvailability lays the active reservations over the opening hours and
// returns ordered, gap-free free/busy segments.
func BuildAvailability(clubID string, slot TimeSlot, active []*Reservation, computedAt time.Time) *Availability {
	opens, closes := slot.Start, slot.End

	busy := make([]TimeSlot, 0, len(active))
	for _, r := range active {
		if r == nil || !r.Status.IsActive() {
			continue
		}
		start, end := max(r.Start, opens), min(r.End, closes)
		if start < end {
			busy = append(busy, TimeSlot{Start: start, End: end})
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start < busy[j].Start })

	segments := make([]AvailabilitySegment, 0, 2*len(busy)+1)
	cursor := opens
	for _, b := range busy {
		if b.Start > cursor {
			segments = append(segments, AvailabilitySegment{Start: cursor, End: b.Start})
		}
		if b.End <= cursor {
			continue
		}
		start := max(b.Start, cursor)
		if n := len(segments); n > 0 && segments[n-1].Busy && segments[n-1].End == start {
			segments[n-1].End = b.End
		} else {
			segments = append(segments, AvailabilitySegment{Start: start, End: b.End, Busy: true})
		}
		cursor = b.End
	}
	if cursor < closes {
		segments = append(segments, AvailabilitySegment{Start: cursor, End: closes})
	}

	return &Availability{
		ClubID:     clubID,
		ResourceID: slot.ResourceID,
		Date:       slot.Date,
		Segments:   segments,
		ComputedAt: computedAt,
	}
}

func (a *Availability) FreeSlots() []TimeSlot {
	free := make([]TimeSlot, 0, len(a.Segments))
	for _, s := range a.Segments {
		if !s.Busy {
			free = append(free, TimeSlot{ResourceID: a.ResourceID, Date: a.Date, Start: s.Start, End: s.End})
		}
	}
	return free
}
