package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/consultorio-psicologia/booking-admin/internal/eventlog"
)

var (
	ErrAlreadyCancelled = errors.New("this appointment is already cancelled")
	ErrValidation       = errors.New("validation error")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// CalendarService removes the external calendar event linked to an appointment.
type CalendarService interface {
	DeleteEvent(ctx context.Context, appt Appointment) error
}

// Notifier e-mails the patient about a cancellation.
type Notifier interface {
	SendCancellationEmail(ctx context.Context, appt Appointment, reason string) error
}

type Step string

const (
	StepCalendar Step = "calendar"
	StepEmail    Step = "email"
)

// SideEffectOutcome is the result of one best-effort step that runs after the
// appointment has been cancelled. A failed step never undoes the cancellation.
type SideEffectOutcome struct {
	Step      Step
	Attempted bool
	OK        bool
	Skipped   string // why the step did not run
	Err       error
}

// CancellationResult is the cancelled appointment plus what happened to each
// secondary step.
type CancellationResult struct {
	Appointment *Appointment
	Secondary   []SideEffectOutcome
}

// Warnings returns the secondary steps that were attempted and failed.
func (r CancellationResult) Warnings() []SideEffectOutcome {
	var out []SideEffectOutcome
	for _, o := range r.Secondary {
		if o.Attempted && !o.OK {
			out = append(out, o)
		}
	}
	return out
}

type Service struct {
	repo     Repository
	calendar CalendarService
	notifier Notifier
	events   *eventlog.Recorder
	logger   *zap.Logger

	sideEffectTimeout time.Duration
}

func NewService(repo Repository, calendar CalendarService, notifier Notifier, events *eventlog.Recorder, logger *zap.Logger, sideEffectTimeout time.Duration) *Service {
	return &Service{
		repo:              repo,
		calendar:          calendar,
		notifier:          notifier,
		events:            events,
		logger:            logger,
		sideEffectTimeout: sideEffectTimeout,
	}
}

// CancelAppointment marks a confirmed appointment as cancelled, then tries to
// delete its calendar event and, if asked, e-mail the patient. Only the
// status change can fail the call; the other two are reported in
// CancellationResult.Secondary and logged.
func (s *Service) CancelAppointment(ctx context.Context, req CancellationRequest) (*CancellationResult, error) {
	if req.AppointmentID == uuid.Nil {
		return nil, &ValidationError{Field: "id", Message: "appointment id is required"}
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "a cancellation reason is required"}
	}

	appt, err := s.repo.GetAppointmentByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	// The reason goes to the patient and the audit log, never into notes.
	notes := strings.TrimSpace(req.AdminNotes)

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusConfirmed, StatusCancelled, notes)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race: somebody else changed or removed the row.
			if cur, getErr := s.repo.GetAppointmentByID(ctx, appt.ID); getErr == nil && cur.Status == StatusCancelled {
				return nil, ErrAlreadyCancelled
			}
			return nil, err
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	// The cancellation is committed. Secondary steps keep running even if
	// the caller goes away.
	sideCtx := context.WithoutCancel(ctx)

	result := &CancellationResult{Appointment: updated}
	result.Secondary = append(result.Secondary, s.deleteCalendarEvent(sideCtx, *updated))
	result.Secondary = append(result.Secondary, s.notifyPatient(sideCtx, *updated, reason, req.NotifyPatient))

	payload := map[string]any{
		"reason":         reason,
		"notify_patient": req.NotifyPatient,
	}
	for _, o := range result.Secondary {
		payload[string(o.Step)] = outcomeLabel(o)
	}
	s.events.Record(sideCtx, eventlog.EventAppointmentCancelled, &updated.ID, payload)

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", updated.ID.String()),
		zap.Int("warnings", len(result.Warnings())))

	return result, nil
}

func (s *Service) deleteCalendarEvent(ctx context.Context, appt Appointment) SideEffectOutcome {
	out := SideEffectOutcome{Step: StepCalendar}

	if !appt.HasCalendarEvent() {
		out.Skipped = "no calendar event linked"
		s.logger.Warn("calendar event not deleted: appointment has no event id",
			zap.String("appointment_id", appt.ID.String()))
		return out
	}

	out.Attempted = true
	if err := s.runStep(ctx, func(ctx context.Context) error { return s.calendar.DeleteEvent(ctx, appt) }); err != nil {
		out.Err = err
		s.logger.Warn("calendar event deletion failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("google_event_id", *appt.GoogleEventID),
			zap.Error(err))
		return out
	}

	out.OK = true
	return out
}

func (s *Service) notifyPatient(ctx context.Context, appt Appointment, reason string, requested bool) SideEffectOutcome {
	out := SideEffectOutcome{Step: StepEmail}

	if !requested {
		out.Skipped = "notification not requested"
		return out
	}

	out.Attempted = true
	if err := s.runStep(ctx, func(ctx context.Context) error { return s.notifier.SendCancellationEmail(ctx, appt, reason) }); err != nil {
		out.Err = err
		s.logger.Warn("cancellation email failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err))
		return out
	}

	out.OK = true
	return out
}

// runStep turns a panic in a collaborator into an error so one bad client
// cannot take the cancellation response down with it.
func (s *Service) runStep(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.sideEffectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sideEffectTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn(ctx)
}

func outcomeLabel(o SideEffectOutcome) string {
	switch {
	case !o.Attempted:
		return "skipped"
	case o.OK:
		return "ok"
	default:
		return "failed"
	}
}

// GetAppointment retrieves one appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListAppointments returns a page of appointments and the total matching count.
func (s *Service) ListAppointments(ctx context.Context, filter ListFilter) ([]Appointment, int, error) {
	filter = filter.Normalized()
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, &ValidationError{Field: "status", Message: "unknown status"}
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, &ValidationError{Field: "to", Message: "date to must not be before date from"}
	}

	appointments, total, err := s.repo.ListAppointments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, total, nil
}
