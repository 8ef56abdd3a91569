package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
	"github.com/consultorio-psicologia/booking-admin/internal/blocking"
)

// messages is shown to the admin. Keys are the machine error codes.
var messages = map[string]string{
	"invalid_request_body":   "No se ha podido leer la solicitud",
	"invalid_id":             "El identificador no es válido",
	"invalid_date":           "La fecha no es válida, usa el formato AAAA-MM-DD",
	"invalid_query":          "Parámetros de búsqueda no válidos",
	"validation_error":       "Revisa los datos del formulario",
	"appointment_not_found":  "La cita no existe",
	"already_cancelled":      "Esta cita ya está cancelada",
	"blocked_slot_not_found": "El bloqueo no existe o ya fue eliminado",
	"date_being_blocked":     "Otra persona está bloqueando esa fecha, inténtalo de nuevo",
	"block_incomplete":       "No se han podido crear todos los bloqueos",
	"delete_incomplete":      "No se han podido eliminar todos los bloqueos del día",
	"internal_error":         "Error interno del servidor",
}

// fieldMessages translates validation messages from the domain packages.
var fieldMessages = map[string]string{
	blocking.MsgDateFromRequired:        "La fecha de inicio es obligatoria",
	blocking.MsgDateToBeforeFrom:        "La fecha de fin no puede ser anterior a la de inicio",
	blocking.MsgSelectTime:              "Debes seleccionar al menos un horario",
	blocking.MsgWeekdayTimeRequired:     "Selecciona un horario para los días entre semana",
	blocking.MsgSaturdayTimeRequired:    "Selecciona un horario para los sábados",
	blocking.MsgInvalidTimeForDate:      "El horario no es válido para ese día",
	"a cancellation reason is required": "Indica el motivo de la cancelación",
	"appointment id is required":        "Falta el identificador de la cita",
	"unknown status":                    "Estado desconocido",
}

func translate(msg string) string {
	if t, ok := fieldMessages[msg]; ok {
		return t
	}
	for en, es := range fieldMessages {
		if strings.HasPrefix(msg, en) {
			return es + strings.TrimPrefix(msg, en)
		}
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: messages[code],
		Details: details,
	})
}

// writeValidation answers 400 with the translated field message.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: translate(msg),
		Field:   field,
	})
}

// writeDomainError maps validation errors of either domain package, or falls
// back to 500 with the underlying message.
func writeDomainError(w http.ResponseWriter, log *zap.Logger, err error) {
	var bve *blocking.ValidationError
	if errors.As(err, &bve) {
		writeValidation(w, bve.Field, bve.Message)
		return
	}
	var ave *appointment.ValidationError
	if errors.As(err, &ave) {
		writeValidation(w, ave.Field, ave.Message)
		return
	}

	log.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
