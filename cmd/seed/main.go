package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
	"github.com/consultorio-psicologia/booking-admin/internal/blocking"
	"github.com/consultorio-psicologia/booking-admin/internal/config"
	"github.com/consultorio-psicologia/booking-admin/internal/db"
	"github.com/consultorio-psicologia/booking-admin/internal/eventlog"
	"github.com/consultorio-psicologia/booking-admin/internal/logger"
	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

type seedOptions struct {
	appointments int
	days         int
	blockedDays  int
}

func main() {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with fake appointments and blocked days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.appointments, "appointments", 50, "number of confirmed appointments to create")
	cmd.Flags().IntVar(&opts.days, "days", 30, "spread appointments over this many days starting today")
	cmd.Flags().IntVar(&opts.blockedDays, "blocked-days", 2, "number of full days to block")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	if opts.days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = log.Sync() }()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(connectCtx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(connectCtx, pool); err != nil {
		return err
	}

	gofakeit.Seed(0)

	today := schedule.DateOf(time.Now().In(cfg.Location()))
	openSlots := gridSlots(today, opts.days)
	if len(openSlots) == 0 {
		return fmt.Errorf("no bookable slots in the next %d days", opts.days)
	}

	if err := seedAppointments(ctx, log, appointment.NewPgRepository(pool), openSlots, opts.appointments); err != nil {
		return fmt.Errorf("seed appointments: %w", err)
	}

	svc := blocking.NewService(
		blocking.NewPgRepository(pool),
		nil,
		eventlog.NewRecorder(eventlog.NewPgStore(pool), log),
		log,
	)
	if err := seedBlockedDays(ctx, log, svc, today, opts); err != nil {
		return fmt.Errorf("seed blocked days: %w", err)
	}

	log.Info("seed complete")
	return nil
}

type gridSlot struct {
	date time.Time
	time schedule.TimeSlot
}

func gridSlots(from time.Time, days int) []gridSlot {
	var out []gridSlot
	for _, d := range schedule.DatesBetween(from, from.AddDate(0, 0, days-1)) {
		for _, t := range schedule.AvailableSlotsForDate(d) {
			out = append(out, gridSlot{date: d, time: t})
		}
	}
	return out
}

func seedAppointments(ctx context.Context, log *zap.Logger, repo *appointment.PgRepository, slots []gridSlot, count int) error {
	if count > len(slots) {
		log.Warn("not enough slots, capping appointments", zap.Int("requested", count), zap.Int("slots", len(slots)))
		count = len(slots)
	}
	log.Info("seeding appointments", zap.Int("count", count))

	gofakeit.ShuffleAnySlice(slots)

	for i := 0; i < count; i++ {
		s := slots[i]
		appt := appointment.Appointment{
			PatientName:      gofakeit.Name(),
			PatientEmail:     gofakeit.Email(),
			PatientPhone:     gofakeit.Phone(),
			AppointmentDate:  s.date,
			AppointmentTime:  s.time,
			ConsultationType: appointment.ConsultationFollowUp,
			Modalidad:        appointment.ModalidadPresencial,
			Status:           appointment.StatusConfirmed,
		}
		if gofakeit.Bool() {
			appt.ConsultationType = appointment.ConsultationFirst
		}
		if gofakeit.Bool() {
			appt.Modalidad = appointment.ModalidadOnline
			eventID := gofakeit.UUID()
			meet := "https://meet.google.com/" + gofakeit.LetterN(10)
			appt.GoogleEventID = &eventID
			appt.GoogleMeetLink = &meet
		}
		token := gofakeit.UUID()
		appt.CancellationToken = &token

		if _, err := repo.CreateAppointment(ctx, appt); err != nil {
			return err
		}
	}

	log.Info("appointments seeded", zap.Int("count", count))
	return nil
}

func seedBlockedDays(ctx context.Context, log *zap.Logger, svc *blocking.Service, today time.Time, opts seedOptions) error {
	reasons := []string{"Vacaciones", "Formación", "Congreso", "Asuntos personales"}

	for i := 0; i < opts.blockedDays; i++ {
		day := today.AddDate(0, 0, gofakeit.Number(0, opts.days-1))
		res, err := svc.Block(ctx, blocking.BlockRequest{
			DateFrom:     day,
			BlockFullDay: true,
			Reason:       reasons[gofakeit.Number(0, len(reasons)-1)],
		})
		if err != nil {
			return err
		}
		log.Info("day blocked",
			zap.String("date", schedule.FormatDate(day)),
			zap.Int("created", len(res.Created())))
	}
	return nil
}
