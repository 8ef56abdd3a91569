package blocking

import (
	"fmt"
	"slices"
	"time"

	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

// Plan validates req and expands it into atomic blocks, ascending by date.
// Sundays inside a range are skipped silently. Plan touches no storage.
func Plan(req BlockRequest) ([]PlannedBlock, error) {
	if req.DateFrom.IsZero() {
		return nil, invalid("date_from", MsgDateFromRequired)
	}
	from := schedule.DateOf(req.DateFrom)

	if req.DateTo != nil && schedule.DateOf(*req.DateTo).Before(from) {
		return nil, invalid("date_to", MsgDateToBeforeFrom)
	}

	if req.singleDay() {
		return planSingleDay(from, req)
	}
	return planRange(from, schedule.DateOf(*req.DateTo), req)
}

func planSingleDay(date time.Time, req BlockRequest) ([]PlannedBlock, error) {
	if req.BlockFullDay {
		return []PlannedBlock{{Date: date}}, nil
	}

	times := dedupe(req.SpecificTimes)
	if len(times) == 0 {
		// A single-day submission from the range form carries its time in
		// the day-type field instead.
		if t := rangeTimeFor(schedule.DayTypeOf(date), req); t != nil {
			times = []schedule.TimeSlot{*t}
		}
	}
	if len(times) == 0 {
		return nil, invalid("specific_times", MsgSelectTime)
	}

	planned := make([]PlannedBlock, 0, len(times))
	for _, t := range times {
		if !schedule.IsValidSlot(date, t) {
			return nil, invalid("specific_times", fmt.Sprintf("%s (%s)", MsgInvalidTimeForDate, t))
		}
		planned = append(planned, PlannedBlock{Date: date, Time: &t})
	}
	return planned, nil
}

func planRange(from, to time.Time, req BlockRequest) ([]PlannedBlock, error) {
	var (
		dates       []time.Time
		hasWeekday  bool
		hasSaturday bool
	)
	for _, d := range schedule.DatesBetween(from, to) {
		switch schedule.DayTypeOf(d) {
		case schedule.Sunday:
			continue
		case schedule.Saturday:
			hasSaturday = true
		default:
			hasWeekday = true
		}
		dates = append(dates, d)
	}

	if !req.BlockFullDay {
		if hasWeekday {
			if req.SpecificTimeWeekday == nil {
				return nil, invalid("specific_time_weekday", MsgWeekdayTimeRequired)
			}
			if !schedule.IsValidForDayType(schedule.Weekday, *req.SpecificTimeWeekday) {
				return nil, invalid("specific_time_weekday", MsgInvalidTimeForDate)
			}
		}
		if hasSaturday {
			if req.SpecificTimeSaturday == nil {
				return nil, invalid("specific_time_saturday", MsgSaturdayTimeRequired)
			}
			if !schedule.IsValidForDayType(schedule.Saturday, *req.SpecificTimeSaturday) {
				return nil, invalid("specific_time_saturday", MsgInvalidTimeForDate)
			}
		}
	}

	planned := make([]PlannedBlock, 0, len(dates))
	for _, d := range dates {
		pb := PlannedBlock{Date: d}
		if !req.BlockFullDay {
			t := *rangeTimeFor(schedule.DayTypeOf(d), req)
			pb.Time = &t
		}
		planned = append(planned, pb)
	}
	return planned, nil
}

func rangeTimeFor(dt schedule.DayType, req BlockRequest) *schedule.TimeSlot {
	switch dt {
	case schedule.Weekday:
		return req.SpecificTimeWeekday
	case schedule.Saturday:
		return req.SpecificTimeSaturday
	default:
		return nil
	}
}

func dedupe(times []schedule.TimeSlot) []schedule.TimeSlot {
	out := make([]schedule.TimeSlot, 0, len(times))
	for _, t := range times {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
