package schedule

import (
	"slices"
	"time"
)

// AvailableSlotsForDate returns the grid slots for the date's day type.
// Existing blocks are not taken into account here.
func AvailableSlotsForDate(date time.Time) []TimeSlot {
	return SlotsFor(DayTypeOf(date))
}

// IsValidSlot reports whether slot is on the grid for date.
func IsValidSlot(date time.Time, slot TimeSlot) bool {
	return slices.Contains(AvailableSlotsForDate(date), slot)
}

func IsSaturday(date time.Time) bool {
	return DayTypeOf(date) == Saturday
}

func IsSunday(date time.Time) bool {
	return DayTypeOf(date) == Sunday
}

// IsValidForDayType reports whether slot belongs to the grid of dt.
func IsValidForDayType(dt DayType, slot TimeSlot) bool {
	return slices.Contains(SlotsFor(dt), slot)
}
