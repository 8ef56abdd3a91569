// Package schedule holds the practice's fixed booking grid: which start
// times exist for a calendar date and how they are labelled.
package schedule

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// SessionLength is the duration of every consultation on the grid.
const SessionLength = 60 * time.Minute

type DayType int

const (
	Weekday DayType = iota
	Saturday
	Sunday
)

func (d DayType) String() string {
	switch d {
	case Weekday:
		return "weekday"
	case Saturday:
		return "saturday"
	case Sunday:
		return "sunday"
	default:
		return fmt.Sprintf("DayType(%d)", int(d))
	}
}

// TimeSlot is a session start time in "HH:MM" form.
type TimeSlot string

var (
	weekdaySlots  = []TimeSlot{"09:30", "10:40", "11:50", "13:00"}
	saturdaySlots = []TimeSlot{"09:00", "10:10", "11:20", "12:30"}
)

// DayTypeOf classifies a calendar date by its day of week.
func DayTypeOf(date time.Time) DayType {
	switch date.Weekday() {
	case time.Sunday:
		return Sunday
	case time.Saturday:
		return Saturday
	default:
		return Weekday
	}
}

// SlotsFor returns the ascending start times for a day type. Sunday has none.
// The returned slice is a copy.
func SlotsFor(dt DayType) []TimeSlot {
	switch dt {
	case Weekday:
		return append([]TimeSlot(nil), weekdaySlots...)
	case Saturday:
		return append([]TimeSlot(nil), saturdaySlots...)
	default:
		return []TimeSlot{}
	}
}

// SlotLabel renders "09:30 - 10:30". A value that is not "HH:MM" is returned unchanged.
func SlotLabel(slot TimeSlot) string {
	start, err := time.Parse("15:04", string(slot))
	if err != nil {
		return string(slot)
	}
	end := start.Add(SessionLength)
	return fmt.Sprintf("%s - %s", start.Format("15:04"), end.Format("15:04"))
}

// NewDate builds a calendar date at midnight UTC.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses "YYYY-MM-DD" into a calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// DateOf drops the clock part of t, keeping its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// DatesBetween lists every calendar date in [from, to], ascending.
// It returns nil when to is before from.
func DatesBetween(from, to time.Time) []time.Time {
	from, to = DateOf(from), DateOf(to)
	if to.Before(from) {
		return nil
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
