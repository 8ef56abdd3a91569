package integrations

import (
	"context"
	"time"

	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
)

// CalendarClient deletes the calendar event created when the appointment was booked.
type CalendarClient struct {
	http httpClient
}

func NewCalendarClient(baseURL, apiKey string, timeout time.Duration) *CalendarClient {
	return &CalendarClient{http: newHTTPClient(baseURL, apiKey, timeout)}
}

type deleteEventRequest struct {
	AppointmentID string `json:"appointment_id"`
	EventID       string `json:"event_id"`
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, appt appointment.Appointment) error {
	req := deleteEventRequest{AppointmentID: appt.ID.String()}
	if appt.GoogleEventID != nil {
		req.EventID = *appt.GoogleEventID
	}
	return c.http.post(ctx, "/calendar/delete-event", req)
}
