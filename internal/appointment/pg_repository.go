package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

const appointmentColumns = `id, patient_name, patient_email, patient_phone,
	appointment_date, appointment_time, consultation_type, modalidad, status, notes,
	google_event_id, google_meet_link, cancellation_token, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var apptTime string

	err := row.Scan(
		&a.ID,
		&a.PatientName,
		&a.PatientEmail,
		&a.PatientPhone,
		&a.AppointmentDate,
		&apptTime,
		&a.ConsultationType,
		&a.Modalidad,
		&a.Status,
		&a.Notes,
		&a.GoogleEventID,
		&a.GoogleMeetLink,
		&a.CancellationToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.AppointmentTime = schedule.TimeSlot(apptTime)
	a.AppointmentDate = schedule.DateOf(a.AppointmentDate)
	return &a, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, filter ListFilter) ([]Appointment, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(patient_name ILIKE $%d OR patient_email ILIKE $%d OR patient_phone ILIKE $%d)", n, n, n))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("appointment_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("appointment_date <= $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + appointmentColumns + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY appointment_date DESC, appointment_time DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, notes string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, string(to), string(from), notes)

	return scanAppointment(row)
}

// CreateAppointment inserts a booked appointment. The admin API never calls
// it; it exists for the seed command.
func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusConfirmed
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_name, patient_email, patient_phone,
			appointment_date, appointment_time, consultation_type, modalidad, status, notes,
			google_event_id, google_meet_link, cancellation_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientName, a.PatientEmail, a.PatientPhone,
		a.AppointmentDate, string(a.AppointmentTime), string(a.ConsultationType), string(a.Modalidad),
		string(a.Status), a.Notes, a.GoogleEventID, a.GoogleMeetLink, a.CancellationToken)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}
