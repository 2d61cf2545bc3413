package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/medportal/clinic-scheduling/internal/availability"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusCheckedIn  Status = "checked-in"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no-show"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Active reports whether the appointment still blocks its time interval.
// Cancelled appointments free the slot; everything else keeps it occupied.
func (s Status) Active() bool {
	return s != StatusCancelled
}

// transitions lists the allowed source states per target state. A "waiting"
// patient is a checked-in patient past the waiting threshold, not a distinct
// persisted status, so checked-in stands in for it everywhere.
var transitions = map[Status][]Status{
	StatusCheckedIn:  {StatusScheduled},
	StatusReady:      {StatusCheckedIn},
	StatusInProgress: {StatusReady, StatusCheckedIn},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {StatusScheduled, StatusCheckedIn, StatusReady, StatusInProgress},
	StatusNoShow:     {StatusScheduled, StatusCheckedIn, StatusReady},
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, src := range transitions[to] {
		if src == from {
			return true
		}
	}
	return false
}

type AppointmentType string

const (
	TypeNewPatient   AppointmentType = "new-patient"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeProcedure    AppointmentType = "procedure"
	TypeTeleconsult  AppointmentType = "teleconsult"
	TypeEmergency    AppointmentType = "emergency"
	TypeConsultation AppointmentType = "consultation"
)

type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// rank orders priorities for queue sorting, highest first.
func (p Priority) rank() int {
	switch p {
	case PriorityEmergency:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	default:
		return 3
	}
}

type Appointment struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	PatientID       uuid.UUID
	Date            time.Time
	Start           availability.TimeOfDay
	DurationMinutes int
	Type            AppointmentType
	Status          Status
	Priority        Priority
	LocationID      uuid.UUID
	Room            string
	Notes           string
	CheckInTime     *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// End is the exclusive end of the appointment interval.
func (a Appointment) End() availability.TimeOfDay {
	return a.Start + availability.TimeOfDay(a.DurationMinutes)
}

// EndAt is the appointment's end as a wall-clock instant.
func (a Appointment) EndAt() time.Time {
	return a.End().At(availability.DayOf(a.Date))
}

// Overlaps reports whether two half-open intervals [Start,End) on the same
// date intersect.
func (a Appointment) Overlaps(start, end availability.TimeOfDay) bool {
	return a.Start < end && start < a.End()
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QueueEntry is a derived view over one of today's appointments; it is never
// persisted. WaitTimeMinutes counts from check-in, Waiting flags checked-in
// patients past the configured threshold who are not yet ready or in progress.
type QueueEntry struct {
	Appointment     Appointment
	PatientName     string
	WaitTimeMinutes int
	Waiting         bool
}
