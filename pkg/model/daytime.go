package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinutesPerDay = 24 * 60
	DateLayout    = "2006-01-02"
)

// DayTime is a wall-clock time of day in minutes since local midnight.
// Encoded as "HH:MM" in JSON and YAML and as an integer in the stores.
// 24:00 is valid as the end of a range.
type DayTime int

const EndOfDay DayTime = MinutesPerDay

func NewDayTime(hour, minute int) DayTime {
	return DayTime(hour*60 + minute)
}

func ParseDayTime(s string) (DayTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	d := NewDayTime(hour, minute)
	if hour < 0 || !d.Valid() {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return d, nil
}

func (d DayTime) Valid() bool {
	return d >= 0 && d <= EndOfDay
}

func (d DayTime) Hour() int   { return int(d) / 60 }
func (d DayTime) Minute() int { return int(d) % 60 }

func (d DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour(), d.Minute())
}

func (d DayTime) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("time of day %d out of range", int(d))
	}
	return []byte(d.String()), nil
}

func (d *DayTime) UnmarshalText(text []byte) error {
	parsed, err := ParseDayTime(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDate parses a YYYY-MM-DD date as local midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return t, nil
}

// At returns the instant of this time of day on date in loc. Minutes past
// midnight are applied through time.Date so DST transitions normalise the
// same way the club's wall clock does.
func (d DayTime) At(date string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, int(d), 0, 0, loc), nil
}

// DaysBetween counts calendar days from a to b, both YYYY-MM-DD.
func DaysBetween(from, to string) (int, error) {
	a, err := time.Parse(DateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q", from)
	}
	b, err := time.Parse(DateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q", to)
	}
	return int(b.Sub(a).Hours() / 24), nil
}

func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func ParseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

func WeekdayOf(date string) (time.Weekday, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q", date)
	}
	return t.Weekday(), nil
}
