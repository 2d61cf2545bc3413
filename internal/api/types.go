package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medportal/clinic-scheduling/internal/availability"
	"github.com/medportal/clinic-scheduling/internal/schedule"
)

type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	PatientID       string `json:"patient_id"`
	Date            string `json:"date"`  // YYYY-MM-DD
	Start           string `json:"start"` // HH:MM
	DurationMinutes int    `json:"duration_minutes"`
	Type            string `json:"type"`
	Priority        string `json:"priority,omitempty"`
	LocationID      string `json:"location_id,omitempty"`
	Room            string `json:"room,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type MoveAppointmentRequest struct {
	Date  string `json:"date"`
	Start string `json:"start"`
}

type AddNoteRequest struct {
	Note string `json:"note"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	Date            string     `json:"date"`
	Start           string     `json:"start"`
	DurationMinutes int        `json:"duration_minutes"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	LocationID      uuid.UUID  `json:"location_id,omitempty"`
	Room            string     `json:"room,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CheckInTime     *time.Time `json:"check_in_time,omitempty"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		Date:            availability.DayOf(a.Date).Format("2006-01-02"),
		Start:           a.Start.String(),
		DurationMinutes: a.DurationMinutes,
		Type:            string(a.Type),
		Status:          string(a.Status),
		Priority:        string(a.Priority),
		LocationID:      a.LocationID,
		Room:            a.Room,
		Notes:           a.Notes,
		CheckInTime:     a.CheckInTime,
	}
}

type DayTemplateRequest struct {
	Enabled    bool                 `json:"enabled"`
	Start      string               `json:"start,omitempty"`
	End        string               `json:"end,omitempty"`
	Breaks     []BreakWindowRequest `json:"breaks,omitempty"`
	LocationID string               `json:"location_id,omitempty"`
}

type BreakWindowRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TemplateRequest carries one entry per weekday, keyed by time.Weekday order
// starting at Sunday. Missing trailing days default to disabled.
type TemplateRequest struct {
	Days []DayTemplateRequest `json:"days"`
}

type SubmitLeaveRequest struct {
	DoctorID  string `json:"doctor_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

type AssignSubstituteRequest struct {
	SubstituteID string `json:"substitute_id"`
}

type LeaveResponse struct {
	ID           uuid.UUID  `json:"id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	StartDate    string     `json:"start_date"`
	EndDate      string     `json:"end_date"`
	Status       string     `json:"status"`
	Reason       string     `json:"reason,omitempty"`
	SubstituteID *uuid.UUID `json:"substitute_id,omitempty"`
}

func toLeaveResponse(l *availability.LeavePeriod) LeaveResponse {
	return LeaveResponse{
		ID:           l.ID,
		DoctorID:     l.DoctorID,
		Type:         string(l.Type),
		Title:        l.Title,
		StartDate:    availability.DayOf(l.StartDate).Format("2006-01-02"),
		EndDate:      availability.DayOf(l.EndDate).Format("2006-01-02"),
		Status:       string(l.Status),
		Reason:       l.Reason,
		SubstituteID: l.SubstituteID,
	}
}

type LocationResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Address string    `json:"address,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Active  bool      `json:"active"`
}

type ErrorResponse struct {
	Error                   string      `json:"error"`
	Details                 string      `json:"details,omitempty"`
	ConflictingAppointments []uuid.UUID `json:"conflicting_appointments,omitempty"`
}
