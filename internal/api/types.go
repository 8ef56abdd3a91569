package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
	"github.com/consultorio-psicologia/booking-admin/internal/blocking"
	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Appointments

type CancelAppointmentRequest struct {
	Reason        string `json:"reason"`
	NotifyPatient bool   `json:"notify_patient"`
	AdminNotes    string `json:"admin_notes"`
}

type AppointmentResponse struct {
	ID                uuid.UUID `json:"id"`
	PatientName       string    `json:"patient_name"`
	PatientEmail      string    `json:"patient_email"`
	PatientPhone      string    `json:"patient_phone"`
	AppointmentDate   string    `json:"appointment_date"`
	AppointmentTime   string    `json:"appointment_time"`
	SlotLabel         string    `json:"slot_label"`
	ConsultationType  string    `json:"consultation_type"`
	Modalidad         string    `json:"modalidad"`
	Status            string    `json:"status"`
	Notes             string    `json:"notes"`
	GoogleEventID     *string   `json:"google_event_id"`
	GoogleMeetLink    *string   `json:"google_meet_link"`
	CancellationToken *string   `json:"cancellation_token,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Data   []AppointmentResponse `json:"data"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type SideEffectResponse struct {
	Step      string `json:"step"`
	Attempted bool   `json:"attempted"`
	OK        bool   `json:"ok"`
	Skipped   string `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

type CancellationResponse struct {
	Appointment AppointmentResponse  `json:"appointment"`
	Secondary   []SideEffectResponse `json:"secondary"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                a.ID,
		PatientName:       a.PatientName,
		PatientEmail:      a.PatientEmail,
		PatientPhone:      a.PatientPhone,
		AppointmentDate:   schedule.FormatDate(a.AppointmentDate),
		AppointmentTime:   string(a.AppointmentTime),
		SlotLabel:         a.SlotLabel(),
		ConsultationType:  string(a.ConsultationType),
		Modalidad:         string(a.Modalidad),
		Status:            string(a.Status),
		Notes:             a.Notes,
		GoogleEventID:     a.GoogleEventID,
		GoogleMeetLink:    a.GoogleMeetLink,
		CancellationToken: a.CancellationToken,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func toCancellationResponse(r appointment.CancellationResult) CancellationResponse {
	resp := CancellationResponse{
		Appointment: toAppointmentResponse(*r.Appointment),
		Secondary:   make([]SideEffectResponse, 0, len(r.Secondary)),
	}
	for _, o := range r.Secondary {
		se := SideEffectResponse{
			Step:      string(o.Step),
			Attempted: o.Attempted,
			OK:        o.OK,
			Skipped:   o.Skipped,
		}
		if o.Err != nil {
			se.Error = o.Err.Error()
		}
		resp.Secondary = append(resp.Secondary, se)
	}
	return resp
}

// Slots and blocks

type SlotResponse struct {
	Time  string `json:"time"`
	Label string `json:"label"`
}

type SlotsResponse struct {
	Date    string         `json:"date"`
	DayType string         `json:"day_type"`
	Slots   []SlotResponse `json:"slots"`
}

type BlockRequestBody struct {
	DateFrom             string   `json:"date_from"`
	DateTo               string   `json:"date_to"`
	BlockFullDay         bool     `json:"block_full_day"`
	SpecificTimes        []string `json:"specific_times"`
	SpecificTimeWeekday  string   `json:"specific_time_weekday"`
	SpecificTimeSaturday string   `json:"specific_time_saturday"`
	Reason               string   `json:"reason"`
}

type ReplaceDayRequest struct {
	BlockFullDay  bool     `json:"block_full_day"`
	SpecificTimes []string `json:"specific_times"`
	Reason        string   `json:"reason"`
}

type BlockedSlotResponse struct {
	ID          uuid.UUID `json:"id"`
	BlockedDate string    `json:"blocked_date"`
	BlockedTime *string   `json:"blocked_time"`
	Reason      *string   `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

type BlockItemResponse struct {
	Date    string     `json:"date"`
	Time    *string    `json:"time"`
	Outcome string     `json:"outcome"`
	ID      *uuid.UUID `json:"id,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type BlockResultResponse struct {
	Created  int                 `json:"created"`
	Complete bool                `json:"complete"`
	Items    []BlockItemResponse `json:"items"`
}

type BlockedDayResponse struct {
	Date    string                `json:"date"`
	FullDay bool                  `json:"full_day"`
	Blocks  []BlockedSlotResponse `json:"blocks"`
}

type BlockedSlotListResponse struct {
	Days []BlockedDayResponse `json:"days"`
}

type DaySlotResponse struct {
	Time    string     `json:"time"`
	Label   string     `json:"label"`
	Blocked bool       `json:"blocked"`
	BlockID *uuid.UUID `json:"block_id,omitempty"`
}

type DayResponse struct {
	Date           string            `json:"date"`
	DayType        string            `json:"day_type"`
	FullDayBlocked bool              `json:"full_day_blocked"`
	FullDayBlockID *uuid.UUID        `json:"full_day_block_id,omitempty"`
	Slots          []DaySlotResponse `json:"slots"`
}

type DeleteDayResponse struct {
	Date    string      `json:"date"`
	Deleted []uuid.UUID `json:"deleted"`
	Failed  []uuid.UUID `json:"failed,omitempty"`
}

func timeString(t *schedule.TimeSlot) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func toBlockedSlotResponse(b blocking.BlockedSlot) BlockedSlotResponse {
	return BlockedSlotResponse{
		ID:          b.ID,
		BlockedDate: schedule.FormatDate(b.BlockedDate),
		BlockedTime: timeString(b.BlockedTime),
		Reason:      b.Reason,
		CreatedAt:   b.CreatedAt,
	}
}

func toBlockResultResponse(r blocking.BlockResult) BlockResultResponse {
	resp := BlockResultResponse{
		Created:  len(r.Created()),
		Complete: r.OK(),
		Items:    make([]BlockItemResponse, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		item := BlockItemResponse{
			Date:    schedule.FormatDate(it.Date),
			Time:    timeString(it.Time),
			Outcome: string(it.Outcome),
		}
		if it.Slot != nil {
			id := it.Slot.ID
			item.ID = &id
		}
		if it.Err != nil {
			item.Error = it.Err.Error()
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}

// groupByDay relies on blocks being ordered by date.
func groupByDay(blocks []blocking.BlockedSlot) BlockedSlotListResponse {
	resp := BlockedSlotListResponse{Days: []BlockedDayResponse{}}
	for _, b := range blocks {
		day := schedule.FormatDate(b.BlockedDate)
		n := len(resp.Days)
		if n == 0 || resp.Days[n-1].Date != day {
			resp.Days = append(resp.Days, BlockedDayResponse{Date: day})
			n++
		}
		resp.Days[n-1].Blocks = append(resp.Days[n-1].Blocks, toBlockedSlotResponse(b))
		if b.IsFullDay() {
			resp.Days[n-1].FullDay = true
		}
	}
	return resp
}

func toDayResponse(v blocking.DayView) DayResponse {
	resp := DayResponse{
		Date:           schedule.FormatDate(v.Date),
		DayType:        v.DayType.String(),
		FullDayBlocked: v.FullDayBlocked,
		FullDayBlockID: v.FullDayBlockID,
		Slots:          make([]DaySlotResponse, 0, len(v.Slots)),
	}
	for _, s := range v.Slots {
		resp.Slots = append(resp.Slots, DaySlotResponse{
			Time:    string(s.Time),
			Label:   s.Label,
			Blocked: s.Blocked,
			BlockID: s.BlockID,
		})
	}
	return resp
}
