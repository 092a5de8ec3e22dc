package shared

import (
	"errors"
	"strings"
	"time"
)

// Day is a lower-case weekday name used as a plan key
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// Week lists the days of a plan week, Monday first
var Week = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ErrInvalidDay is returned for names outside the week
var ErrInvalidDay = errors.New("unknown day of week")

// ParseDay parses a weekday name case-insensitively
func ParseDay(s string) (Day, error) {
	d := Day(strings.ToLower(strings.TrimSpace(s)))
	for _, w := range Week {
		if w == d {
			return d, nil
		}
	}
	return "", ErrInvalidDay
}

// DayOf returns the plan day for a calendar date
func DayOf(t time.Time) Day {
	// time.Weekday starts on Sunday
	return Week[(int(t.Weekday())+6)%7]
}

// Offset returns the day's index from Monday
func (d Day) Offset() int {
	for i, w := range Week {
		if w == d {
			return i
		}
	}
	return -1
}

// WeekStart truncates t to midnight UTC of the Monday of its week
func WeekStart(t time.Time) time.Time {
	t = DateOf(t)
	return t.AddDate(0, 0, -DayOf(t).Offset())
}

// DateOf truncates t to midnight UTC
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
