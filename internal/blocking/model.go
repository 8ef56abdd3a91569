package blocking

import (
	"time"

	"github.com/google/uuid"

	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

// BlockedSlot withdraws availability. A nil BlockedTime blocks the whole day
// regardless of any other rows for the same date.
type BlockedSlot struct {
	ID          uuid.UUID
	BlockedDate time.Time
	BlockedTime *schedule.TimeSlot
	Reason      *string
	CreatedAt   time.Time
}

func (b BlockedSlot) IsFullDay() bool {
	return b.BlockedTime == nil
}

// BlockRequest is the admin's blocking intent for one day or a date range.
type BlockRequest struct {
	DateFrom time.Time
	// DateTo nil (or equal to DateFrom) means single-day mode.
	DateTo       *time.Time
	BlockFullDay bool
	// SpecificTimes is used in single-day mode.
	SpecificTimes []schedule.TimeSlot
	// Range mode takes one time per day type.
	SpecificTimeWeekday  *schedule.TimeSlot
	SpecificTimeSaturday *schedule.TimeSlot
	Reason               string
}

func (r BlockRequest) singleDay() bool {
	return r.DateTo == nil || r.DateTo.Equal(r.DateFrom)
}

// PlannedBlock is one row the request expands to. Time nil means full day.
type PlannedBlock struct {
	Date time.Time
	Time *schedule.TimeSlot
}

type Outcome string

const (
	OutcomeCreated        Outcome = "created"
	OutcomeAlreadyBlocked Outcome = "already_blocked"
	OutcomeFailed         Outcome = "failed"
	OutcomeNotAttempted   Outcome = "not_attempted"
)

// ItemResult reports what happened to one planned block.
type ItemResult struct {
	Date    time.Time
	Time    *schedule.TimeSlot
	Outcome Outcome
	Slot    *BlockedSlot
	Err     error
}

// BlockResult lists per-item outcomes in ascending date order so a caller can
// retry only what failed.
type BlockResult struct {
	Items []ItemResult
}

func (r BlockResult) Created() []BlockedSlot {
	var out []BlockedSlot
	for _, it := range r.Items {
		if it.Outcome == OutcomeCreated && it.Slot != nil {
			out = append(out, *it.Slot)
		}
	}
	return out
}

// Pending returns the items that failed or were never attempted.
func (r BlockResult) Pending() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Outcome == OutcomeFailed || it.Outcome == OutcomeNotAttempted {
			out = append(out, it)
		}
	}
	return out
}

func (r BlockResult) OK() bool {
	return len(r.Pending()) == 0
}

// DeleteDayResult reports a whole-day deletion. Deletions are not rolled back
// when a later one fails.
type DeleteDayResult struct {
	Date    time.Time
	Deleted []uuid.UUID
	Failed  map[uuid.UUID]error
}

// SlotState is one grid slot of a day as seen by the time picker.
type SlotState struct {
	Time    schedule.TimeSlot
	Label   string
	Blocked bool
	BlockID *uuid.UUID
}

// DayView is the blocking state of one calendar date.
type DayView struct {
	Date           time.Time
	DayType        schedule.DayType
	FullDayBlocked bool
	FullDayBlockID *uuid.UUID
	Slots          []SlotState
	Blocks         []BlockedSlot
}

// BlockedTimes returns the times that are already blocked on the day.
func (v DayView) BlockedTimes() []schedule.TimeSlot {
	var out []schedule.TimeSlot
	for _, s := range v.Slots {
		if s.Blocked {
			out = append(out, s.Time)
		}
	}
	return out
}

type ListFilter struct {
	From *time.Time
	To   *time.Time
}
