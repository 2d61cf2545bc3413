package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medportal/clinic-scheduling/internal/availability"
	"github.com/medportal/clinic-scheduling/internal/schedule"
)

const (
	defaultSlotDuration = 30
	defaultSlotBuffer   = 0
)

type Handler struct {
	registry *schedule.Registry
	calendar *schedule.Calendar
	avail    *availability.Service
}

func NewHandler(registry *schedule.Registry, calendar *schedule.Calendar, avail *availability.Service) *Handler {
	return &Handler{
		registry: registry,
		calendar: calendar,
		avail:    avail,
	}
}

// Parsing helpers

func uuidParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func queryDate(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return parseDate(v)
}

// Appointments

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}
	start, err := availability.ParseTimeOfDay(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
		return
	}

	var locationID uuid.UUID
	if req.LocationID != "" {
		locationID, err = uuid.Parse(req.LocationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
			return
		}
	}

	appt, err := h.registry.Create(r.Context(), schedule.Draft{
		DoctorID:        doctorID,
		PatientID:       patientID,
		Date:            date,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		Type:            schedule.AppointmentType(req.Type),
		Priority:        schedule.Priority(req.Priority),
		LocationID:      locationID,
		Room:            req.Room,
		Notes:           req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := h.registry.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) moveAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req MoveAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}
	start, err := availability.ParseTimeOfDay(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
		return
	}

	appt, err := h.registry.Move(r.Context(), id, date, start)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// transitionHandler builds one handler per status-changing operation.
func (h *Handler) transitionHandler(op func(*http.Request, uuid.UUID) (*schedule.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := op(r, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func (h *Handler) addNote(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Note == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "note is required")
		return
	}

	appt, err := h.registry.AddNote(r.Context(), id, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// Slots, queue and calendar

func (h *Handler) doctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}
	date, err := queryDate(r, "date", time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.avail.SlotsForDay(r.Context(), doctorID, date,
		queryInt(r, "duration", defaultSlotDuration), queryInt(r, "buffer", defaultSlotBuffer), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"date":      availability.DayOf(date).Format("2006-01-02"),
		"slots":     slots,
	})
}

func (h *Handler) doctorQueue(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}
	date, err := queryDate(r, "date", time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	order := schedule.QueueOrder(r.URL.Query().Get("order"))
	switch order {
	case "":
		order = schedule.OrderByPriority
	case schedule.OrderByWaitTime, schedule.OrderByPriority, schedule.OrderByTime:
	default:
		writeError(w, http.StatusBadRequest, "invalid_order", "order must be wait, priority or time")
		return
	}

	snap, err := h.registry.Snapshot(r.Context(), doctorID, date, order)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) dayView(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}
	date, err := queryDate(r, "date", time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	view, err := h.calendar.DayView(r.Context(), doctorID, date,
		queryInt(r, "duration", defaultSlotDuration), queryInt(r, "buffer", defaultSlotBuffer))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) weekView(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}
	start, err := queryDate(r, "start", time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be YYYY-MM-DD")
		return
	}

	view, err := h.calendar.WeekView(r.Context(), doctorID, start)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) monthView(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}

	monthStr := r.URL.Query().Get("month")
	if monthStr == "" {
		monthStr = time.Now().UTC().Format("2006-01")
	}
	month, err := time.Parse("2006-01", monthStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_month", "month must be YYYY-MM")
		return
	}

	view, err := h.calendar.MonthView(r.Context(), doctorID, month.Year(), month.Month())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Working hours template

func (h *Handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}

	tmpl, err := h.avail.GetTemplate(r.Context(), doctorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": tmpl.DoctorID,
		"days":      tmpl.Days,
	})
}

func (h *Handler) putTemplate(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if len(req.Days) > 7 {
		writeError(w, http.StatusBadRequest, "invalid_template", "at most 7 day entries")
		return
	}

	tmpl := availability.WeeklyTemplate{DoctorID: doctorID}
	for i, day := range req.Days {
		parsed, err := parseDayTemplate(day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_template", err.Error())
			return
		}
		tmpl.Days[i] = parsed
	}

	if err := h.avail.SaveTemplate(r.Context(), &tmpl); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": tmpl.DoctorID,
		"days":      tmpl.Days,
	})
}

func parseDayTemplate(req DayTemplateRequest) (availability.DayTemplate, error) {
	day := availability.DayTemplate{Enabled: req.Enabled}
	if !req.Enabled {
		return day, nil
	}

	var err error
	if day.Start, err = availability.ParseTimeOfDay(req.Start); err != nil {
		return day, err
	}
	if day.End, err = availability.ParseTimeOfDay(req.End); err != nil {
		return day, err
	}
	for _, br := range req.Breaks {
		var window availability.BreakWindow
		if window.Start, err = availability.ParseTimeOfDay(br.Start); err != nil {
			return day, err
		}
		if window.End, err = availability.ParseTimeOfDay(br.End); err != nil {
			return day, err
		}
		day.Breaks = append(day.Breaks, window)
	}
	if req.LocationID != "" {
		if day.LocationID, err = uuid.Parse(req.LocationID); err != nil {
			return day, err
		}
	}

	return day, nil
}

// Leave management

func (h *Handler) submitLeave(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
		return
	}

	leave, err := h.avail.SubmitLeave(r.Context(), &availability.LeavePeriod{
		DoctorID:  doctorID,
		Type:      availability.LeaveType(req.Type),
		Title:     req.Title,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLeaveResponse(leave))
}

// leaveActionHandler builds one handler per leave status operation.
func (h *Handler) leaveActionHandler(op func(*http.Request, uuid.UUID) (*availability.LeavePeriod, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_leave_id", "id must be a valid UUID")
			return
		}

		leave, err := op(r, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toLeaveResponse(leave))
	}
}

func (h *Handler) assignSubstitute(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_leave_id", "id must be a valid UUID")
		return
	}

	var req AssignSubstituteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	substituteID, err := uuid.Parse(req.SubstituteID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_substitute_id", "substitute_id must be a valid UUID")
		return
	}

	leave, err := h.avail.AssignSubstitute(r.Context(), id, substituteID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLeaveResponse(leave))
}

func (h *Handler) doctorLeaves(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
		return
	}

	now := time.Now().UTC()
	from, err := queryDate(r, "from", now.AddDate(0, -1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
		return
	}
	to, err := queryDate(r, "to", now.AddDate(1, 0, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
		return
	}

	leaves, err := h.avail.ListLeavesForDoctor(r.Context(), doctorID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]LeaveResponse, 0, len(leaves))
	for i := range leaves {
		resp = append(resp, toLeaveResponse(&leaves[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Locations

func (h *Handler) getLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_location_id", "id must be a valid UUID")
		return
	}

	location, err := h.avail.GetLocation(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LocationResponse{
		ID:      location.ID,
		Name:    location.Name,
		Type:    string(location.Type),
		Address: location.Address,
		Phone:   location.Phone,
		Active:  location.Active,
	})
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	locations, err := h.avail.ListLocations(r.Context(), activeOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]LocationResponse, 0, len(locations))
	for _, l := range locations {
		resp = append(resp, LocationResponse{
			ID:      l.ID,
			Name:    l.Name,
			Type:    string(l.Type),
			Address: l.Address,
			Phone:   l.Phone,
			Active:  l.Active,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
