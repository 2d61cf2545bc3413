package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/medportal/clinic-scheduling/internal/availability"
)

// Placement is a candidate appointment interval. ExcludeID, when set, removes
// the named appointment from the overlap checks so an appointment being moved
// does not collide with itself.
type Placement struct {
	DoctorID        uuid.UUID
	Date            time.Time
	Start           availability.TimeOfDay
	DurationMinutes int
	LocationID      uuid.UUID
	Room            string
	ExcludeID       *uuid.UUID
}

// PlacementContext carries everything ValidatePlacement needs so the engine
// itself stays pure: the doctor's template day, approved leaves covering the
// date, the doctor's appointments on the date, and (when rooms are tracked)
// the other appointments occupying the same room that day.
type PlacementContext struct {
	Day           availability.DayTemplate
	Leaves        []availability.LeavePeriod
	DoctorDay     []Appointment
	RoomNeighbors []Appointment
	TrackRooms    bool
}

// ValidatePlacement judges a placement against working hours, breaks, leave
// and double-booking, short-circuiting on the first failure in that order.
// It returns nil when the placement is acceptable.
func ValidatePlacement(ctx PlacementContext, p Placement) error {
	if p.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}

	end := p.Start + availability.TimeOfDay(p.DurationMinutes)

	if !ctx.Day.Enabled || p.Start < ctx.Day.Start || end > ctx.Day.End {
		return &PlacementError{Reason: OutsideWorkingHours}
	}

	if ctx.Day.InBreak(p.Start, end) {
		return &PlacementError{Reason: DuringBreak}
	}

	for _, leave := range ctx.Leaves {
		if leave.Status == availability.LeaveApproved && leave.Covers(p.Date) && leave.SubstituteID == nil {
			return &PlacementError{Reason: OnLeave}
		}
	}

	for _, other := range ctx.DoctorDay {
		if p.ExcludeID != nil && other.ID == *p.ExcludeID {
			continue
		}
		if !other.Status.Active() {
			continue
		}
		if other.Overlaps(p.Start, end) {
			return &PlacementError{Reason: DoctorDoubleBooked}
		}
	}

	if ctx.TrackRooms && p.Room != "" {
		for _, other := range ctx.RoomNeighbors {
			if p.ExcludeID != nil && other.ID == *p.ExcludeID {
				continue
			}
			if !other.Status.Active() || other.DoctorID == p.DoctorID {
				continue
			}
			if other.LocationID == p.LocationID && other.Room == p.Room && other.Overlaps(p.Start, end) {
				return &PlacementError{Reason: RoomDoubleBooked}
			}
		}
	}

	return nil
}
