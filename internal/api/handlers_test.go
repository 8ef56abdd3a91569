package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
	"github.com/consultorio-psicologia/booking-admin/internal/blocking"
	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

type fakeAppointments struct {
	cancel func(ctx context.Context, req appointment.CancellationRequest) (*appointment.CancellationResult, error)
	get    func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	list   func(ctx context.Context, filter appointment.ListFilter) ([]appointment.Appointment, int, error)
}

func (f *fakeAppointments) CancelAppointment(ctx context.Context, req appointment.CancellationRequest) (*appointment.CancellationResult, error) {
	return f.cancel(ctx, req)
}

func (f *fakeAppointments) GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return f.get(ctx, id)
}

func (f *fakeAppointments) ListAppointments(ctx context.Context, filter appointment.ListFilter) ([]appointment.Appointment, int, error) {
	return f.list(ctx, filter)
}

type fakeBlocking struct {
	block      func(ctx context.Context, req blocking.BlockRequest) (blocking.BlockResult, error)
	deleteOne  func(ctx context.Context, id uuid.UUID) error
	deleteDay  func(ctx context.Context, date time.Time) (blocking.DeleteDayResult, error)
	replaceDay func(ctx context.Context, date time.Time, full bool, times []schedule.TimeSlot, reason string) (blocking.BlockResult, error)
	day        func(ctx context.Context, date time.Time) (blocking.DayView, error)
	list       func(ctx context.Context, filter blocking.ListFilter) ([]blocking.BlockedSlot, error)
}

func (f *fakeBlocking) Block(ctx context.Context, req blocking.BlockRequest) (blocking.BlockResult, error) {
	return f.block(ctx, req)
}

func (f *fakeBlocking) DeleteBlockedSlot(ctx context.Context, id uuid.UUID) error {
	return f.deleteOne(ctx, id)
}

func (f *fakeBlocking) DeleteDay(ctx context.Context, date time.Time) (blocking.DeleteDayResult, error) {
	return f.deleteDay(ctx, date)
}

func (f *fakeBlocking) ReplaceDay(ctx context.Context, date time.Time, full bool, times []schedule.TimeSlot, reason string) (blocking.BlockResult, error) {
	return f.replaceDay(ctx, date, full, times, reason)
}

func (f *fakeBlocking) Day(ctx context.Context, date time.Time) (blocking.DayView, error) {
	return f.day(ctx, date)
}

func (f *fakeBlocking) List(ctx context.Context, filter blocking.ListFilter) ([]blocking.BlockedSlot, error) {
	return f.list(ctx, filter)
}

func newTestRouter(appts *fakeAppointments, blocks *fakeBlocking) http.Handler {
	if appts == nil {
		appts = &fakeAppointments{}
	}
	if blocks == nil {
		blocks = &fakeBlocking{}
	}
	return NewRouter(RouterConfig{Appointments: appts, Blocking: blocks, Env: "test"})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func strPtr(s string) *string { return &s }

func slotPtr(s schedule.TimeSlot) *schedule.TimeSlot { return &s }

func TestSlots_Saturday(t *testing.T) {
	rec := do(t, newTestRouter(nil, nil), http.MethodGet, "/slots?date=2024-06-15", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SlotsResponse](t, rec)
	assert.Equal(t, "saturday", resp.DayType)
	require.Len(t, resp.Slots, 4)
	assert.Equal(t, SlotResponse{Time: "09:00", Label: "09:00 - 10:00"}, resp.Slots[0])
}

func TestSlots_SundayIsEmpty(t *testing.T) {
	rec := do(t, newTestRouter(nil, nil), http.MethodGet, "/slots?date=2024-06-16", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SlotsResponse](t, rec)
	assert.Empty(t, resp.Slots)
	assert.NotNil(t, resp.Slots)
}

func TestSlots_InvalidDate(t *testing.T) {
	rec := do(t, newTestRouter(nil, nil), http.MethodGet, "/slots?date=15/06/2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", decode[ErrorResponse](t, rec).Error)
}

func TestCancelAppointment_Success(t *testing.T) {
	id := uuid.New()
	var got appointment.CancellationRequest
	appts := &fakeAppointments{
		cancel: func(_ context.Context, req appointment.CancellationRequest) (*appointment.CancellationResult, error) {
			got = req
			return &appointment.CancellationResult{
				Appointment: &appointment.Appointment{
					ID:              id,
					AppointmentDate: schedule.NewDate(2024, time.June, 10),
					AppointmentTime: "09:30",
					Status:          appointment.StatusCancelled,
					Notes:           "Paciente enfermo",
				},
				Secondary: []appointment.SideEffectOutcome{
					{Step: appointment.StepCalendar, Attempted: true, Err: errors.New("calendar down")},
					{Step: appointment.StepEmail, Skipped: "notification not requested"},
				},
			}, nil
		},
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodPost, "/appointments/"+id.String()+"/cancel",
		`{"reason":"Paciente enfermo","notify_patient":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, id, got.AppointmentID)
	assert.Equal(t, "Paciente enfermo", got.Reason)
	assert.False(t, got.NotifyPatient)

	resp := decode[CancellationResponse](t, rec)
	assert.Equal(t, "CANCELADA", resp.Appointment.Status)
	assert.Equal(t, "09:30 - 10:30", resp.Appointment.SlotLabel)
	require.Len(t, resp.Secondary, 2)
	assert.Equal(t, "calendar down", resp.Secondary[0].Error)
	assert.Equal(t, "notification not requested", resp.Secondary[1].Skipped)
}

func TestCancelAppointment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{"already cancelled", appointment.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
		{"validation", &appointment.ValidationError{Field: "reason", Message: "a cancellation reason is required"}, http.StatusBadRequest, "validation_error"},
		{"storage", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appts := &fakeAppointments{
				cancel: func(context.Context, appointment.CancellationRequest) (*appointment.CancellationResult, error) {
					return nil, tt.err
				},
			}
			rec := do(t, newTestRouter(appts, nil), http.MethodPost, "/appointments/"+uuid.NewString()+"/cancel", `{"reason":"x"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestCancelAppointment_ValidationMessageIsTranslated(t *testing.T) {
	appts := &fakeAppointments{
		cancel: func(context.Context, appointment.CancellationRequest) (*appointment.CancellationResult, error) {
			return nil, &appointment.ValidationError{Field: "reason", Message: "a cancellation reason is required"}
		},
	}
	rec := do(t, newTestRouter(appts, nil), http.MethodPost, "/appointments/"+uuid.NewString()+"/cancel", `{"reason":" "}`)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "reason", resp.Field)
	assert.Equal(t, "Indica el motivo de la cancelación", resp.Message)
}

func TestCancelAppointment_BadInput(t *testing.T) {
	r := newTestRouter(nil, nil)

	rec := do(t, r, http.MethodPost, "/appointments/not-a-uuid/cancel", `{"reason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decode[ErrorResponse](t, rec).Error)

	rec = do(t, r, http.MethodPost, "/appointments/"+uuid.NewString()+"/cancel", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_body", decode[ErrorResponse](t, rec).Error)
}

func TestListAppointments_ParsesFilter(t *testing.T) {
	var got appointment.ListFilter
	appts := &fakeAppointments{
		list: func(_ context.Context, f appointment.ListFilter) ([]appointment.Appointment, int, error) {
			got = f
			return []appointment.Appointment{{ID: uuid.New(), AppointmentDate: schedule.NewDate(2024, time.June, 10)}}, 7, nil
		},
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodGet,
		"/appointments?status=confirmada&q=ana&from=2024-06-01&to=2024-06-30&limit=5&offset=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, got.Status)
	assert.Equal(t, appointment.StatusConfirmed, *got.Status)
	assert.Equal(t, "ana", got.Search)
	assert.Equal(t, schedule.NewDate(2024, time.June, 1), *got.From)
	assert.Equal(t, schedule.NewDate(2024, time.June, 30), *got.To)
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, 5, got.Offset)

	resp := decode[AppointmentListResponse](t, rec)
	assert.Equal(t, 7, resp.Total)
	assert.Len(t, resp.Data, 1)
}

func TestListAppointments_EchoesClampedPage(t *testing.T) {
	var got appointment.ListFilter
	appts := &fakeAppointments{
		list: func(_ context.Context, f appointment.ListFilter) ([]appointment.Appointment, int, error) {
			got = f
			return nil, 0, nil
		},
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodGet, "/appointments?limit=500&offset=-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AppointmentListResponse](t, rec)
	assert.Equal(t, appointment.MaxListLimit, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	assert.Equal(t, got.Limit, resp.Limit)
	assert.NotNil(t, resp.Data)
}

func TestListAppointments_DefaultLimit(t *testing.T) {
	appts := &fakeAppointments{
		list: func(context.Context, appointment.ListFilter) ([]appointment.Appointment, int, error) {
			return nil, 0, nil
		},
	}

	rec := do(t, newTestRouter(appts, nil), http.MethodGet, "/appointments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.DefaultListLimit, decode[AppointmentListResponse](t, rec).Limit)
}

func TestListAppointments_BadQuery(t *testing.T) {
	rec := do(t, newTestRouter(nil, nil), http.MethodGet, "/appointments?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_query", decode[ErrorResponse](t, rec).Error)
}

func TestGetAppointment_NotFound(t *testing.T) {
	appts := &fakeAppointments{
		get: func(context.Context, uuid.UUID) (*appointment.Appointment, error) {
			return nil, appointment.ErrAppointmentNotFound
		},
	}
	rec := do(t, newTestRouter(appts, nil), http.MethodGet, "/appointments/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBlockedSlots_RangeRequest(t *testing.T) {
	var got blocking.BlockRequest
	created := blocking.BlockedSlot{ID: uuid.New(), BlockedDate: schedule.NewDate(2024, time.June, 14), BlockedTime: slotPtr("09:30")}
	blocks := &fakeBlocking{
		block: func(_ context.Context, req blocking.BlockRequest) (blocking.BlockResult, error) {
			got = req
			return blocking.BlockResult{Items: []blocking.ItemResult{
				{Date: created.BlockedDate, Time: created.BlockedTime, Outcome: blocking.OutcomeCreated, Slot: &created},
			}}, nil
		},
	}

	body := `{"date_from":"2024-06-14","date_to":"2024-06-17","specific_time_weekday":"09:30","specific_time_saturday":"10:10","reason":" Congreso "}`
	rec := do(t, newTestRouter(nil, blocks), http.MethodPost, "/blocked-slots", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, schedule.NewDate(2024, time.June, 14), got.DateFrom)
	require.NotNil(t, got.DateTo)
	assert.Equal(t, schedule.NewDate(2024, time.June, 17), *got.DateTo)
	assert.Equal(t, schedule.TimeSlot("09:30"), *got.SpecificTimeWeekday)
	assert.Equal(t, schedule.TimeSlot("10:10"), *got.SpecificTimeSaturday)
	assert.Equal(t, "Congreso", got.Reason)

	resp := decode[BlockResultResponse](t, rec)
	assert.Equal(t, 1, resp.Created)
	assert.True(t, resp.Complete)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, created.ID, *resp.Items[0].ID)
}

func TestCreateBlockedSlots_MissingDateReachesValidation(t *testing.T) {
	blocks := &fakeBlocking{
		block: func(_ context.Context, req blocking.BlockRequest) (blocking.BlockResult, error) {
			_, err := blocking.Plan(req)
			return blocking.BlockResult{}, err
		},
	}

	rec := do(t, newTestRouter(nil, blocks), http.MethodPost, "/blocked-slots", `{"block_full_day":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Error)
	assert.Equal(t, "date_from", resp.Field)
	assert.Equal(t, "La fecha de inicio es obligatoria", resp.Message)
}

func TestCreateBlockedSlots_MalformedDate(t *testing.T) {
	rec := do(t, newTestRouter(nil, nil), http.MethodPost, "/blocked-slots", `{"date_from":"2024-13-01","block_full_day":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_date", resp.Error)
	assert.Equal(t, "date_from", resp.Field)
}

func TestCreateBlockedSlots_IncompleteReturnsResult(t *testing.T) {
	d1 := schedule.NewDate(2024, time.June, 10)
	d2 := schedule.NewDate(2024, time.June, 11)
	slot := blocking.BlockedSlot{ID: uuid.New(), BlockedDate: d1}
	blocks := &fakeBlocking{
		block: func(context.Context, blocking.BlockRequest) (blocking.BlockResult, error) {
			return blocking.BlockResult{Items: []blocking.ItemResult{
				{Date: d1, Outcome: blocking.OutcomeCreated, Slot: &slot},
				{Date: d2, Outcome: blocking.OutcomeFailed, Err: errors.New("db down")},
			}}, errors.Join(blocking.ErrBlockIncomplete, errors.New("db down"))
		},
	}

	rec := do(t, newTestRouter(nil, blocks), http.MethodPost, "/blocked-slots",
		`{"date_from":"2024-06-10","date_to":"2024-06-11","block_full_day":true}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Error  string              `json:"error"`
		Result BlockResultResponse `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "block_incomplete", resp.Error)
	assert.False(t, resp.Result.Complete)
	assert.Equal(t, 1, resp.Result.Created)
	assert.Equal(t, "failed", resp.Result.Items[1].Outcome)
}

func TestCreateBlockedSlots_DateBeingBlocked(t *testing.T) {
	blocks := &fakeBlocking{
		block: func(context.Context, blocking.BlockRequest) (blocking.BlockResult, error) {
			return blocking.BlockResult{}, errors.Join(blocking.ErrBlockIncomplete, blocking.ErrDateBeingBlocked)
		},
	}

	rec := do(t, newTestRouter(nil, blocks), http.MethodPost, "/blocked-slots", `{"date_from":"2024-06-10","block_full_day":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "date_being_blocked", decode[ErrorResponse](t, rec).Error)
}

func TestListBlockedSlots_GroupsByDay(t *testing.T) {
	d1 := schedule.NewDate(2024, time.June, 10)
	d2 := schedule.NewDate(2024, time.June, 11)
	var got blocking.ListFilter
	blocks := &fakeBlocking{
		list: func(_ context.Context, f blocking.ListFilter) ([]blocking.BlockedSlot, error) {
			got = f
			return []blocking.BlockedSlot{
				{ID: uuid.New(), BlockedDate: d1, Reason: strPtr("Vacaciones")},
				{ID: uuid.New(), BlockedDate: d2, BlockedTime: slotPtr("09:30")},
				{ID: uuid.New(), BlockedDate: d2, BlockedTime: slotPtr("13:00")},
			}, nil
		},
	}

	rec := do(t, newTestRouter(nil, blocks), http.MethodGet, "/blocked-slots?from=2024-06-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.From)
	assert.Nil(t, got.To)

	resp := decode[BlockedSlotListResponse](t, rec)
	require.Len(t, resp.Days, 2)
	assert.True(t, resp.Days[0].FullDay)
	assert.Nil(t, resp.Days[0].Blocks[0].BlockedTime)
	assert.False(t, resp.Days[1].FullDay)
	assert.Len(t, resp.Days[1].Blocks, 2)
}

func TestDay_ReturnsSlotStates(t *testing.T) {
	blockID := uuid.New()
	blocks := &fakeBlocking{
		day: func(_ context.Context, date time.Time) (blocking.DayView, error) {
			return blocking.DayView{
				Date:    date,
				DayType: schedule.Weekday,
				Slots: []blocking.SlotState{
					{Time: "09:30", Label: "09:30 - 10:30", Blocked: true, BlockID: &blockID},
					{Time: "10:40", Label: "10:40 - 11:40"},
				},
			}, nil
		},
	}

	rec := do(t, newTestRouter(nil, blocks), http.MethodGet, "/blocked-slots/days/2024-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[DayResponse](t, rec)
	assert.Equal(t, "2024-06-10", resp.Date)
	assert.Equal(t, "weekday", resp.DayType)
	require.Len(t, resp.Slots, 2)
	assert.True(t, resp.Slots[0].Blocked)
	assert.Equal(t, blockID, *resp.Slots[0].BlockID)
	assert.False(t, resp.Slots[1].Blocked)
}

func TestReplaceDay_PassesTimes(t *testing.T) {
	var gotTimes []schedule.TimeSlot
	var gotFull bool
	blocks := &fakeBlocking{
		replaceDay: func(_ context.Context, _ time.Time, full bool, times []schedule.TimeSlot, _ string) (blocking.BlockResult, error) {
			gotFull = full
			gotTimes = times
			return blocking.BlockResult{}, nil
		},
	}

	rec := do(t, newTestRouter(nil, blocks), http.MethodPut, "/blocked-slots/days/2024-06-10", `{"specific_times":["09:30","13:00"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotFull)
	assert.Equal(t, []schedule.TimeSlot{"09:30", "13:00"}, gotTimes)
}

func TestDeleteDay_Incomplete(t *testing.T) {
	ok := uuid.New()
	bad := uuid.New()
	blocks := &fakeBlocking{
		deleteDay: func(_ context.Context, date time.Time) (blocking.DeleteDayResult, error) {
			return blocking.DeleteDayResult{
				Date:    date,
				Deleted: []uuid.UUID{ok},
				Failed:  map[uuid.UUID]error{bad: errors.New("timeout")},
			}, errors.Join(blocking.ErrDeleteIncomplete, errors.New("timeout"))
		},
	}

	rec := do(t, newTestRouter(nil, blocks), http.MethodDelete, "/blocked-slots/days/2024-06-10", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Error  string            `json:"error"`
		Result DeleteDayResponse `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "delete_incomplete", resp.Error)
	assert.Equal(t, []uuid.UUID{ok}, resp.Result.Deleted)
	assert.Equal(t, []uuid.UUID{bad}, resp.Result.Failed)
}

func TestDeleteDay_EmptyDay(t *testing.T) {
	blocks := &fakeBlocking{
		deleteDay: func(_ context.Context, date time.Time) (blocking.DeleteDayResult, error) {
			return blocking.DeleteDayResult{Date: date, Failed: map[uuid.UUID]error{}}, nil
		},
	}

	rec := do(t, newTestRouter(nil, blocks), http.MethodDelete, "/blocked-slots/days/2024-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2024-06-10","deleted":[]}`, rec.Body.String())
}

func TestDeleteBlockedSlot(t *testing.T) {
	id := uuid.New()
	deleted := false
	blocks := &fakeBlocking{
		deleteOne: func(_ context.Context, got uuid.UUID) error {
			if deleted {
				return blocking.ErrBlockedSlotNotFound
			}
			require.Equal(t, id, got)
			deleted = true
			return nil
		},
	}
	r := newTestRouter(nil, blocks)

	rec := do(t, r, http.MethodDelete, "/blocked-slots/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodDelete, "/blocked-slots/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "blocked_slot_not_found", decode[ErrorResponse](t, rec).Error)
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()

	newTestRouter(nil, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestPanicIsRecovered(t *testing.T) {
	appts := &fakeAppointments{
		get: func(context.Context, uuid.UUID) (*appointment.Appointment, error) {
			panic("boom")
		},
	}
	rec := do(t, newTestRouter(appts, nil), http.MethodGet, "/appointments/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
