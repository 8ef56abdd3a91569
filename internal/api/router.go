package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
	"github.com/consultorio-psicologia/booking-admin/internal/blocking"
	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

type AppointmentService interface {
	CancelAppointment(ctx context.Context, req appointment.CancellationRequest) (*appointment.CancellationResult, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListAppointments(ctx context.Context, filter appointment.ListFilter) ([]appointment.Appointment, int, error)
}

type BlockingService interface {
	Block(ctx context.Context, req blocking.BlockRequest) (blocking.BlockResult, error)
	DeleteBlockedSlot(ctx context.Context, id uuid.UUID) error
	DeleteDay(ctx context.Context, date time.Time) (blocking.DeleteDayResult, error)
	ReplaceDay(ctx context.Context, date time.Time, blockFullDay bool, times []schedule.TimeSlot, reason string) (blocking.BlockResult, error)
	Day(ctx context.Context, date time.Time) (blocking.DayView, error)
	List(ctx context.Context, filter blocking.ListFilter) ([]blocking.BlockedSlot, error)
}

type RouterConfig struct {
	Appointments AppointmentService
	Blocking     BlockingService
	Logger       *zap.Logger
	HealthChecks []HealthCheck
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	// Health endpoints
	health := NewHealthHandler(cfg.HealthChecks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/slots", listSlotsHandler())

	// Appointment endpoints
	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", listAppointmentsHandler(cfg.Appointments, log))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments, log))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments, log))
	})

	// Blocked slot endpoints
	r.Route("/blocked-slots", func(r chi.Router) {
		r.Get("/", listBlockedSlotsHandler(cfg.Blocking, log))
		r.Post("/", createBlockedSlotsHandler(cfg.Blocking, log))
		r.Get("/days/{date}", dayHandler(cfg.Blocking, log))
		r.Put("/days/{date}", replaceDayHandler(cfg.Blocking, log))
		r.Delete("/days/{date}", deleteDayHandler(cfg.Blocking, log))
		r.Delete("/{id}", deleteBlockedSlotHandler(cfg.Blocking, log))
	})

	return r
}
