package blocking

import (
	"errors"
	"fmt"
)

// ErrValidation marks user-correctable input problems. Nothing has been
// written when an error wrapping it is returned.
var ErrValidation = errors.New("validation error")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

const (
	MsgDateFromRequired     = "date from is required"
	MsgDateToBeforeFrom     = "date to must not be before date from"
	MsgSelectTime           = "must select at least one time slot"
	MsgWeekdayTimeRequired  = "a weekday time is required when the range includes weekdays"
	MsgSaturdayTimeRequired = "a saturday time is required when the range includes saturdays"
	MsgInvalidTimeForDate   = "time slot is not on the grid for this date"
)
