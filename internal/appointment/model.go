package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "CONFIRMADA"
	StatusCancelled AppointmentStatus = "CANCELADA"
)

func (s AppointmentStatus) Valid() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

type ConsultationType string

const (
	ConsultationFirst    ConsultationType = "primera_consulta"
	ConsultationFollowUp ConsultationType = "seguimiento"
)

type Modalidad string

const (
	ModalidadOnline     Modalidad = "online"
	ModalidadPresencial Modalidad = "presencial"
)

// Appointment is created by the public booking flow in CONFIRMADA status.
// This service only ever moves it to CANCELADA.
type Appointment struct {
	ID                uuid.UUID
	PatientName       string
	PatientEmail      string
	PatientPhone      string
	AppointmentDate   time.Time
	AppointmentTime   schedule.TimeSlot
	ConsultationType  ConsultationType
	Modalidad         Modalidad
	Status            AppointmentStatus
	Notes             string
	GoogleEventID     *string
	GoogleMeetLink    *string
	CancellationToken *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a Appointment) HasCalendarEvent() bool {
	return a.GoogleEventID != nil && *a.GoogleEventID != ""
}

// SlotLabel renders the session window, e.g. "09:30 - 10:30".
func (a Appointment) SlotLabel() string {
	return schedule.SlotLabel(a.AppointmentTime)
}

// CancellationRequest is the admin's cancel dialog submission.
type CancellationRequest struct {
	AppointmentID uuid.UUID
	Reason        string
	NotifyPatient bool
	AdminNotes    string
}

type ListFilter struct {
	Status *AppointmentStatus
	// Search matches patient name, email or phone, case-insensitively.
	Search string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Normalized returns f with the page size and offset the store will use.
func (f ListFilter) Normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
