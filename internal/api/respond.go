package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medportal/clinic-scheduling/internal/availability"
	redisclient "github.com/medportal/clinic-scheduling/internal/redis"
	"github.com/medportal/clinic-scheduling/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps core errors onto HTTP statuses and stable error
// codes. Front ends localize per code; the core carries no UI strings.
func writeDomainError(w http.ResponseWriter, err error) {
	var placement *schedule.PlacementError
	var transition *schedule.TransitionError
	var leaveConflict *availability.LeaveConflictError

	switch {
	case errors.As(err, &placement):
		writeError(w, http.StatusConflict, string(placement.Reason), err.Error())
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.As(err, &leaveConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:                   "leave_conflict",
			Details:                 err.Error(),
			ConflictingAppointments: leaveConflict.AppointmentIDs,
		})
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, availability.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "template_not_found", err.Error())
	case errors.Is(err, availability.ErrLocationNotFound):
		writeError(w, http.StatusNotFound, "location_not_found", err.Error())
	case errors.Is(err, availability.ErrLeaveNotFound):
		writeError(w, http.StatusNotFound, "leave_not_found", err.Error())
	case errors.Is(err, schedule.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "concurrent_modification", err.Error())
	case errors.Is(err, schedule.ErrScheduleBusy),
		errors.Is(err, availability.ErrScheduleBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "doctor schedule is being modified, please retry shortly")
	case errors.Is(err, schedule.ErrAppointmentFinal):
		writeError(w, http.StatusConflict, "appointment_final", err.Error())
	case errors.Is(err, schedule.ErrNotPastSlotEnd):
		writeError(w, http.StatusConflict, "slot_not_ended", err.Error())
	case errors.Is(err, availability.ErrLeaveOverlap):
		writeError(w, http.StatusConflict, "leave_overlap", err.Error())
	case errors.Is(err, availability.ErrInvalidTemplate),
		errors.Is(err, availability.ErrInvalidTimeOfDay),
		errors.Is(err, availability.ErrInvalidLeave),
		errors.Is(err, schedule.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
