package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medportal/clinic-scheduling/internal/availability"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Directory is the patient/doctor lookup collaborator. Identity management
// lives outside this service; the registry only resolves ids to display rows.
type Directory interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

// Repository contains all DB interactions needed by the registry, queue and
// calendar views.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListForDoctorDate returns every appointment for a doctor on one date,
	// any status; callers filter.
	ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	// ListForDoctorRange returns appointments with date in [from,to] inclusive.
	ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)
	// ListForRoomDate returns appointments occupying a room at a location on
	// one date, across all doctors.
	ListForRoomDate(ctx context.Context, locationID uuid.UUID, room string, date time.Time) ([]Appointment, error)

	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
	// UpdatePlacement moves an appointment; the version guard makes the write
	// a compare-and-set, surfacing ErrConcurrentModification on a miss.
	UpdatePlacement(ctx context.Context, id uuid.UUID, version int64, date time.Time, start availability.TimeOfDay) (*Appointment, error)
	// UpdateStatus transitions an appointment under the same version guard.
	// checkInTime is written only when non-nil.
	UpdateStatus(ctx context.Context, id uuid.UUID, version int64, to Status, checkInTime *time.Time) (*Appointment, error)
	AppendNote(ctx context.Context, id uuid.UUID, note string) (*Appointment, error)

	// FindActiveIDsInRange feeds leave approval: non-cancelled appointments
	// falling inside a prospective leave window.
	FindActiveIDsInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]uuid.UUID, error)
	// ListDoctorsWithAppointments returns distinct doctor ids with at least
	// one non-terminal appointment on the date; the queue monitor uses it.
	ListDoctorsWithAppointments(ctx context.Context, date time.Time) ([]uuid.UUID, error)
}
