package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medportal/clinic-scheduling/internal/availability"
	"github.com/medportal/clinic-scheduling/internal/notify"
	redisclient "github.com/medportal/clinic-scheduling/internal/redis"
)

// AvailabilityReader is the slice of the availability service the registry
// needs to judge placements.
type AvailabilityReader interface {
	ContextForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (*availability.DayContext, error)
}

// Draft is the payload for creating an appointment.
type Draft struct {
	DoctorID        uuid.UUID
	PatientID       uuid.UUID
	Date            time.Time
	Start           availability.TimeOfDay
	DurationMinutes int
	Type            AppointmentType
	Priority        Priority
	LocationID      uuid.UUID
	Room            string
	Notes           string
}

// Registry owns all appointment mutations. Every write for a doctor runs
// inside that doctor's lock so two concurrent bookings cannot both pass
// validation and double-book a slot.
type Registry struct {
	repo         Repository
	dir          Directory
	avail        AvailabilityReader
	locker       redisclient.Locker
	notifier     notify.Trigger
	log          zerolog.Logger
	trackRooms   bool
	writeRetries int
	waitingAfter time.Duration
	now          func() time.Time
}

type RegistryConfig struct {
	TrackRooms   bool
	WriteRetries int
	WaitingAfter time.Duration
}

func NewRegistry(repo Repository, dir Directory, avail AvailabilityReader, locker redisclient.Locker, notifier notify.Trigger, cfg RegistryConfig, log zerolog.Logger) *Registry {
	if cfg.WriteRetries < 0 {
		cfg.WriteRetries = 0
	}
	return &Registry{
		repo:         repo,
		dir:          dir,
		avail:        avail,
		locker:       locker,
		notifier:     notifier,
		log:          log.With().Str("component", "registry").Logger(),
		trackRooms:   cfg.TrackRooms,
		writeRetries: cfg.WriteRetries,
		waitingAfter: cfg.WaitingAfter,
		now:          time.Now,
	}
}

// validate builds the placement context and runs the conflict engine.
func (r *Registry) validate(ctx context.Context, p Placement) error {
	dayCtx, err := r.avail.ContextForDay(ctx, p.DoctorID, p.Date)
	if err != nil {
		return err
	}

	doctorDay, err := r.repo.ListForDoctorDate(ctx, p.DoctorID, p.Date)
	if err != nil {
		return fmt.Errorf("list doctor appointments: %w", err)
	}

	var neighbors []Appointment
	if r.trackRooms && p.Room != "" {
		neighbors, err = r.repo.ListForRoomDate(ctx, p.LocationID, p.Room, p.Date)
		if err != nil {
			return fmt.Errorf("list room appointments: %w", err)
		}
	}

	return ValidatePlacement(PlacementContext{
		Day:           dayCtx.Day,
		Leaves:        dayCtx.Leaves,
		DoctorDay:     doctorDay,
		RoomNeighbors: neighbors,
		TrackRooms:    r.trackRooms,
	}, p)
}

// Create validates and books a new appointment in the scheduled state. On
// rejection the registry leaves no partial state behind.
func (r *Registry) Create(ctx context.Context, draft Draft) (*Appointment, error) {
	if _, err := r.dir.GetDoctorByID(ctx, draft.DoctorID); err != nil {
		return nil, err
	}
	if _, err := r.dir.GetPatientByID(ctx, draft.PatientID); err != nil {
		return nil, err
	}
	if draft.Priority == "" {
		draft.Priority = PriorityNormal
	}

	var created *Appointment
	err := r.locker.WithDoctorLock(ctx, draft.DoctorID, func(lockCtx context.Context) error {
		if err := r.validate(lockCtx, Placement{
			DoctorID:        draft.DoctorID,
			Date:            draft.Date,
			Start:           draft.Start,
			DurationMinutes: draft.DurationMinutes,
			LocationID:      draft.LocationID,
			Room:            draft.Room,
		}); err != nil {
			return err
		}

		appt, err := r.repo.CreateAppointment(lockCtx, &Appointment{
			DoctorID:        draft.DoctorID,
			PatientID:       draft.PatientID,
			Date:            availability.DayOf(draft.Date),
			Start:           draft.Start,
			DurationMinutes: draft.DurationMinutes,
			Type:            draft.Type,
			Priority:        draft.Priority,
			LocationID:      draft.LocationID,
			Room:            draft.Room,
			Notes:           draft.Notes,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	r.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", created.DoctorID.String()).
		Str("start", created.Start.String()).
		Msg("appointment created")

	r.notifier.Notify(ctx, notify.Event{
		Type:          notify.EventAppointmentCreated,
		AppointmentID: created.ID,
		DoctorID:      created.DoctorID,
		PatientID:     created.PatientID,
		OccurredAt:    r.now(),
		Details: map[string]any{
			"date":  created.Date.Format("2006-01-02"),
			"start": created.Start.String(),
		},
	})

	return created, nil
}

// Move reschedules an appointment. The appointment being moved is excluded
// from its own overlap check; the write is a compare-and-set, so either the
// move fully succeeds or the appointment is left unchanged.
func (r *Registry) Move(ctx context.Context, id uuid.UUID, newDate time.Time, newStart availability.TimeOfDay) (*Appointment, error) {
	appt, err := r.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrAppointmentFinal
	}

	var moved *Appointment
	err = r.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
		for attempt := 0; ; attempt++ {
			current, err := r.repo.GetAppointmentByID(lockCtx, id)
			if err != nil {
				return err
			}
			if current.Status.Terminal() {
				return ErrAppointmentFinal
			}

			excludeID := current.ID
			if err := r.validate(lockCtx, Placement{
				DoctorID:        current.DoctorID,
				Date:            newDate,
				Start:           newStart,
				DurationMinutes: current.DurationMinutes,
				LocationID:      current.LocationID,
				Room:            current.Room,
				ExcludeID:       &excludeID,
			}); err != nil {
				return err
			}

			moved, err = r.repo.UpdatePlacement(lockCtx, id, current.Version, newDate, newStart)
			if errors.Is(err, ErrConcurrentModification) && attempt < r.writeRetries {
				continue
			}
			return err
		}
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	r.log.Info().
		Str("appointment_id", moved.ID.String()).
		Str("date", moved.Date.Format("2006-01-02")).
		Str("start", moved.Start.String()).
		Msg("appointment moved")

	r.notifier.Notify(ctx, notify.Event{
		Type:          notify.EventAppointmentMoved,
		AppointmentID: moved.ID,
		DoctorID:      moved.DoctorID,
		PatientID:     moved.PatientID,
		OccurredAt:    r.now(),
		Details: map[string]any{
			"date":  moved.Date.Format("2006-01-02"),
			"start": moved.Start.String(),
		},
	})

	return moved, nil
}

// transition applies one status change under the doctor lock with a small
// retry budget for version conflicts. guard, when non-nil, can veto the
// change after the current state is known; setCheckIn stamps CheckInTime.
func (r *Registry) transition(ctx context.Context, id uuid.UUID, to Status, guard func(*Appointment) error, setCheckIn bool) (*Appointment, error) {
	appt, err := r.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *Appointment
	err = r.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
		for attempt := 0; ; attempt++ {
			current, err := r.repo.GetAppointmentByID(lockCtx, id)
			if err != nil {
				return err
			}
			if !CanTransition(current.Status, to) {
				return &TransitionError{From: current.Status, To: to}
			}
			if guard != nil {
				if err := guard(current); err != nil {
					return err
				}
			}

			var checkIn *time.Time
			if setCheckIn {
				now := r.now()
				checkIn = &now
			}

			updated, err = r.repo.UpdateStatus(lockCtx, id, current.Version, to, checkIn)
			if errors.Is(err, ErrConcurrentModification) && attempt < r.writeRetries {
				continue
			}
			return err
		}
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	r.log.Info().
		Str("appointment_id", updated.ID.String()).
		Str("status", string(updated.Status)).
		Msg("appointment status changed")

	return updated, nil
}

// CheckIn marks a scheduled patient as arrived and stamps the check-in time.
func (r *Registry) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.transition(ctx, id, StatusCheckedIn, nil, true)
}

// MarkReady flags a checked-in (or waiting) patient as ready for consultation.
func (r *Registry) MarkReady(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.transition(ctx, id, StatusReady, nil, false)
}

// Start begins the consultation.
func (r *Registry) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.transition(ctx, id, StatusInProgress, nil, false)
}

// Complete finishes an in-progress consultation. Terminal.
func (r *Registry) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.transition(ctx, id, StatusCompleted, nil, false)
}

// Cancel aborts any non-terminal appointment. Terminal.
func (r *Registry) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	cancelled, err := r.transition(ctx, id, StatusCancelled, nil, false)
	if err != nil {
		return nil, err
	}

	r.notifier.Notify(ctx, notify.Event{
		Type:          notify.EventAppointmentCancelled,
		AppointmentID: cancelled.ID,
		DoctorID:      cancelled.DoctorID,
		PatientID:     cancelled.PatientID,
		OccurredAt:    r.now(),
	})

	return cancelled, nil
}

// MarkNoShow records a patient who never turned up. Only allowed once the
// scheduled slot has ended. Terminal.
func (r *Registry) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.transition(ctx, id, StatusNoShow, func(a *Appointment) error {
		if r.now().Before(a.EndAt()) {
			return ErrNotPastSlotEnd
		}
		return nil
	}, false)
}

// AddNote appends an audit note; permitted in any state, including terminal.
func (r *Registry) AddNote(ctx context.Context, id uuid.UUID, note string) (*Appointment, error) {
	return r.repo.AppendNote(ctx, id, note)
}

// Get returns one appointment.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.repo.GetAppointmentByID(ctx, id)
}
