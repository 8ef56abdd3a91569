package integrations

import (
	"context"
	"time"

	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

// Mailer sends patient-facing e-mails through the notification service.
type Mailer struct {
	http httpClient
}

func NewMailer(baseURL, apiKey string, timeout time.Duration) *Mailer {
	return &Mailer{http: newHTTPClient(baseURL, apiKey, timeout)}
}

type cancellationEmail struct {
	AppointmentID    string `json:"appointment_id"`
	PatientName      string `json:"patient_name"`
	PatientEmail     string `json:"patient_email"`
	Date             string `json:"appointment_date"`
	Time             string `json:"appointment_time"`
	Slot             string `json:"slot"`
	ConsultationType string `json:"consultation_type"`
	Modalidad        string `json:"modalidad"`
	Reason           string `json:"reason"`
}

func (m *Mailer) SendCancellationEmail(ctx context.Context, appt appointment.Appointment, reason string) error {
	return m.http.post(ctx, "/emails/cancellation", cancellationEmail{
		AppointmentID:    appt.ID.String(),
		PatientName:      appt.PatientName,
		PatientEmail:     appt.PatientEmail,
		Date:             schedule.FormatDate(appt.AppointmentDate),
		Time:             string(appt.AppointmentTime),
		Slot:             appt.SlotLabel(),
		ConsultationType: string(appt.ConsultationType),
		Modalidad:        string(appt.Modalidad),
		Reason:           reason,
	})
}
