package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, filter ListFilter) ([]Appointment, int, error)

	// UpdateAppointmentStatus moves id from one status to another, storing
	// notes and bumping updated_at. It returns ErrAppointmentNotFound when
	// no row with that id is in status from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes string) (*Appointment, error)
}
