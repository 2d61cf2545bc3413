package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medportal/clinic-scheduling/internal/availability"
)

// QueueOrder selects one of the three total orderings for a doctor's queue.
type QueueOrder string

const (
	OrderByWaitTime QueueOrder = "wait"     // longest waiting first
	OrderByPriority QueueOrder = "priority" // emergency first, check-in time breaks ties
	OrderByTime     QueueOrder = "time"     // original appointment time ascending
)

// queueStatuses are the persisted statuses visible in the patient queue.
func inQueue(s Status) bool {
	return s == StatusCheckedIn || s == StatusReady || s == StatusInProgress
}

// BuildQueue derives queue entries from a day's appointments. Pure: wait
// times and the waiting label are computed against the supplied clock, and
// the sorts are stable so equal keys keep their input order.
func BuildQueue(appts []Appointment, now time.Time, waitingAfter time.Duration, order QueueOrder) []QueueEntry {
	var entries []QueueEntry
	for _, a := range appts {
		if !inQueue(a.Status) {
			continue
		}

		e := QueueEntry{Appointment: a}
		if a.CheckInTime != nil {
			wait := now.Sub(*a.CheckInTime)
			if wait > 0 {
				e.WaitTimeMinutes = int(wait / time.Minute)
			}
			e.Waiting = a.Status == StatusCheckedIn && wait >= waitingAfter
		}
		entries = append(entries, e)
	}

	switch order {
	case OrderByWaitTime:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].WaitTimeMinutes > entries[j].WaitTimeMinutes
		})
	case OrderByPriority:
		sort.SliceStable(entries, func(i, j int) bool {
			pi, pj := entries[i].Appointment.Priority.rank(), entries[j].Appointment.Priority.rank()
			if pi != pj {
				return pi < pj
			}
			ci, cj := entries[i].Appointment.CheckInTime, entries[j].Appointment.CheckInTime
			if ci == nil || cj == nil {
				return cj == nil && ci != nil
			}
			return ci.Before(*cj)
		})
	case OrderByTime:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Appointment.Start < entries[j].Appointment.Start
		})
	}

	return entries
}

// QueueForDoctor returns the live queue for a doctor on a date, usually
// today. Entries carry display names resolved through the directory.
func (r *Registry) QueueForDoctor(ctx context.Context, doctorID uuid.UUID, date time.Time, order QueueOrder) ([]QueueEntry, error) {
	appts, err := r.repo.ListForDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	entries := BuildQueue(appts, r.now(), r.waitingAfter, order)

	for i := range entries {
		patient, err := r.dir.GetPatientByID(ctx, entries[i].Appointment.PatientID)
		if err != nil {
			// The queue should still render if one directory row is missing.
			r.log.Warn().Err(err).
				Str("patient_id", entries[i].Appointment.PatientID.String()).
				Msg("resolve patient for queue")
			continue
		}
		entries[i].PatientName = patient.Name
	}

	return entries, nil
}

// QueueSnapshot is the display payload the queue monitor republishes.
type QueueSnapshot struct {
	DoctorID    uuid.UUID   `json:"doctor_id"`
	Date        string      `json:"date"`
	GeneratedAt time.Time   `json:"generated_at"`
	Entries     []QueueView `json:"entries"`
}

// QueueView is one queue entry flattened for JSON consumers.
type QueueView struct {
	AppointmentID   uuid.UUID              `json:"appointment_id"`
	PatientID       uuid.UUID              `json:"patient_id"`
	PatientName     string                 `json:"patient_name,omitempty"`
	Start           availability.TimeOfDay `json:"start"`
	Status          Status                 `json:"status"`
	Priority        Priority               `json:"priority"`
	WaitTimeMinutes int                    `json:"wait_time_minutes"`
	Waiting         bool                   `json:"waiting"`
}

// Snapshot captures the current queue for publication. Display-only: nothing
// here mutates persisted state.
func (r *Registry) Snapshot(ctx context.Context, doctorID uuid.UUID, date time.Time, order QueueOrder) (*QueueSnapshot, error) {
	entries, err := r.QueueForDoctor(ctx, doctorID, date, order)
	if err != nil {
		return nil, err
	}

	snap := &QueueSnapshot{
		DoctorID:    doctorID,
		Date:        availability.DayOf(date).Format("2006-01-02"),
		GeneratedAt: r.now(),
	}
	for _, e := range entries {
		snap.Entries = append(snap.Entries, QueueView{
			AppointmentID:   e.Appointment.ID,
			PatientID:       e.Appointment.PatientID,
			PatientName:     e.PatientName,
			Start:           e.Appointment.Start,
			Status:          e.Appointment.Status,
			Priority:        e.Appointment.Priority,
			WaitTimeMinutes: e.WaitTimeMinutes,
			Waiting:         e.Waiting,
		})
	}

	return snap, nil
}

// ActiveDoctors lists doctors with a live schedule on the date; the queue
// monitor iterates this set each tick.
func (r *Registry) ActiveDoctors(ctx context.Context, date time.Time) ([]uuid.UUID, error) {
	return r.repo.ListDoctorsWithAppointments(ctx, date)
}
