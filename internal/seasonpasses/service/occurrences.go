package service

import (
	"courtkeeper/pkg/model"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// maxPassDays caps a pass at one season plus a day.
const maxPassDays = 366

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// occurrences lists the dates of the pass's weekly slot between its first
// and last valid day, evaluated in the club's time zone.
func occurrences(pass *model.SeasonPass, loc *time.Location) ([]string, error) {
	weekday, ok := model.ParseWeekday(pass.Weekday)
	if !ok {
		return nil, fmt.Errorf("invalid weekday %q", pass.Weekday)
	}

	first, err := pass.Start.At(pass.ValidFrom, loc)
	if err != nil {
		return nil, err
	}
	last, err := pass.Start.At(pass.ValidUntil, loc)
	if err != nil {
		return nil, err
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   first,
		Until:     last,
		Byweekday: []rrule.Weekday{rruleWeekdays[weekday]},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence: %w", err)
	}

	times := rule.All()
	dates := make([]string, 0, len(times))
	for _, t := range times {
		dates = append(dates, model.DateOf(t, loc))
	}
	return dates, nil
}
