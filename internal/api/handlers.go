package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
	"github.com/consultorio-psicologia/booking-admin/internal/blocking"
	"github.com/consultorio-psicologia/booking-admin/internal/schedule"
)

// Slots

func listSlotsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := schedule.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		slots := schedule.AvailableSlotsForDate(date)
		resp := SlotsResponse{
			Date:    schedule.FormatDate(date),
			DayType: schedule.DayTypeOf(date).String(),
			Slots:   make([]SlotResponse, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, SlotResponse{Time: string(s), Label: schedule.SlotLabel(s)})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// Appointments

func listAppointmentsHandler(svc AppointmentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseAppointmentFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}

		filter = filter.Normalized()

		appts, total, err := svc.ListAppointments(r.Context(), filter)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		resp := AppointmentListResponse{
			Data:   make([]AppointmentResponse, 0, len(appts)),
			Total:  total,
			Limit:  filter.Limit,
			Offset: filter.Offset,
		}
		for _, a := range appts {
			resp.Data = append(resp.Data, toAppointmentResponse(a))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func parseAppointmentFilter(r *http.Request) (appointment.ListFilter, error) {
	q := r.URL.Query()
	filter := appointment.ListFilter{
		Search: strings.TrimSpace(q.Get("q")),
	}

	if s := q.Get("status"); s != "" && s != "all" {
		st := appointment.AppointmentStatus(strings.ToUpper(s))
		filter.Status = &st
	}

	var err error
	if filter.From, err = optionalDate(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = optionalDate(q.Get("to")); err != nil {
		return filter, err
	}

	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			return filter, errors.New("limit must be a number")
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			return filter, errors.New("offset must be a number")
		}
	}

	return filter, nil
}

func getAppointmentHandler(svc AppointmentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
				return
			}
			writeDomainError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func cancelAppointmentHandler(svc AppointmentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		res, err := svc.CancelAppointment(r.Context(), appointment.CancellationRequest{
			AppointmentID: id,
			Reason:        req.Reason,
			NotifyPatient: req.NotifyPatient,
			AdminNotes:    req.AdminNotes,
		})
		if err != nil {
			handleCancelError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toCancellationResponse(*res))
	}
}

func handleCancelError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "already_cancelled", err.Error())
	default:
		writeDomainError(w, log, err)
	}
}

// Blocked slots

func listBlockedSlotsHandler(svc BlockingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err := optionalDate(q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		to, err := optionalDate(q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		blocks, err := svc.List(r.Context(), blocking.ListFilter{From: from, To: to})
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, groupByDay(blocks))
	}
}

func createBlockedSlotsHandler(svc BlockingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body BlockRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		req, field, err := body.toDomain()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_date",
				Message: messages["invalid_date"],
				Field:   field,
				Details: err.Error(),
			})
			return
		}

		res, err := svc.Block(r.Context(), req)
		if err != nil {
			handleBlockError(w, log, err, res)
			return
		}

		writeJSON(w, http.StatusCreated, toBlockResultResponse(res))
	}
}

func (b BlockRequestBody) toDomain() (blocking.BlockRequest, string, error) {
	req := blocking.BlockRequest{
		BlockFullDay:  b.BlockFullDay,
		SpecificTimes: toSlots(b.SpecificTimes),
		Reason:        strings.TrimSpace(b.Reason),
	}

	// An empty date_from is left zero so the domain reports it as required.
	if b.DateFrom != "" {
		d, err := schedule.ParseDate(b.DateFrom)
		if err != nil {
			return req, "date_from", err
		}
		req.DateFrom = d
	}

	to, err := optionalDate(b.DateTo)
	if err != nil {
		return req, "date_to", err
	}
	req.DateTo = to

	if b.SpecificTimeWeekday != "" {
		t := schedule.TimeSlot(b.SpecificTimeWeekday)
		req.SpecificTimeWeekday = &t
	}
	if b.SpecificTimeSaturday != "" {
		t := schedule.TimeSlot(b.SpecificTimeSaturday)
		req.SpecificTimeSaturday = &t
	}

	return req, "", nil
}

func handleBlockError(w http.ResponseWriter, log *zap.Logger, err error, res blocking.BlockResult) {
	switch {
	case errors.Is(err, blocking.ErrValidation):
		writeDomainError(w, log, err)
	case errors.Is(err, blocking.ErrDateBeingBlocked):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "date_being_blocked",
			Message: messages["date_being_blocked"],
			Details: err.Error(),
			Result:  toBlockResultResponse(res),
		})
	case errors.Is(err, blocking.ErrBlockIncomplete):
		log.Error("blocking incomplete", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "block_incomplete",
			Message: messages["block_incomplete"],
			Details: err.Error(),
			Result:  toBlockResultResponse(res),
		})
	default:
		writeDomainError(w, log, err)
	}
}

func dayHandler(svc BlockingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDateParam(w, r)
		if !ok {
			return
		}

		view, err := svc.Day(r.Context(), date)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toDayResponse(view))
	}
}

func replaceDayHandler(svc BlockingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDateParam(w, r)
		if !ok {
			return
		}

		var body ReplaceDayRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		res, err := svc.ReplaceDay(r.Context(), date, body.BlockFullDay, toSlots(body.SpecificTimes), strings.TrimSpace(body.Reason))
		if err != nil {
			if errors.Is(err, blocking.ErrDeleteIncomplete) {
				log.Error("replace day: delete incomplete", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "delete_incomplete", err.Error())
				return
			}
			handleBlockError(w, log, err, res)
			return
		}

		writeJSON(w, http.StatusOK, toBlockResultResponse(res))
	}
}

func deleteDayHandler(svc BlockingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDateParam(w, r)
		if !ok {
			return
		}

		res, err := svc.DeleteDay(r.Context(), date)
		resp := DeleteDayResponse{
			Date:    schedule.FormatDate(date),
			Deleted: res.Deleted,
		}
		if resp.Deleted == nil {
			resp.Deleted = []uuid.UUID{}
		}
		for id := range res.Failed {
			resp.Failed = append(resp.Failed, id)
		}

		if err != nil {
			if errors.Is(err, blocking.ErrDeleteIncomplete) {
				log.Error("delete day incomplete", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error:   "delete_incomplete",
					Message: messages["delete_incomplete"],
					Details: err.Error(),
					Result:  resp,
				})
				return
			}
			writeDomainError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteBlockedSlotHandler(svc BlockingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteBlockedSlot(r.Context(), id); err != nil {
			if errors.Is(err, blocking.ErrBlockedSlotNotFound) {
				writeError(w, http.StatusNotFound, "blocked_slot_not_found", err.Error())
				return
			}
			writeDomainError(w, log, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Helpers

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseDateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := schedule.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return time.Time{}, false
	}
	return date, true
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := schedule.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toSlots(in []string) []schedule.TimeSlot {
	out := make([]schedule.TimeSlot, 0, len(in))
	for _, s := range in {
		out = append(out, schedule.TimeSlot(strings.TrimSpace(s)))
	}
	return out
}
