package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrConcurrentModification = errors.New("appointment changed concurrently, please retry")
	ErrScheduleBusy           = errors.New("doctor schedule is busy, please retry")
	ErrAppointmentFinal       = errors.New("appointment is in a terminal state")
	ErrNotPastSlotEnd         = errors.New("appointment slot has not ended yet")
	ErrInvalidDuration        = errors.New("duration must be positive")
)

// Reason is the closed set of placement rejections.
type Reason string

const (
	OutsideWorkingHours Reason = "outside_working_hours"
	DuringBreak         Reason = "during_break"
	OnLeave             Reason = "on_leave"
	DoctorDoubleBooked  Reason = "doctor_double_booked"
	RoomDoubleBooked    Reason = "room_double_booked"
)

// PlacementError rejects an appointment placement with one of the closed
// reasons. The core carries no UI strings; front ends localize per reason.
type PlacementError struct {
	Reason Reason
}

func (e *PlacementError) Error() string {
	return "placement rejected: " + string(e.Reason)
}

// TransitionError rejects an illegal status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}
