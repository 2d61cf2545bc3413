package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTemplate  = errors.New("invalid working hours template")
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM between 00:00 and 24:00")
)

// TimeOfDay is minutes since midnight. It survives JSON as "HH:MM" and avoids
// the clock-skew traps of carrying full timestamps for recurring weekly hours.
type TimeOfDay int

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if h < 0 || m < 0 || m > 59 || h*60+m > 24*60 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidTimeOfDay, string(b))
	}
	parsed, err := ParseTimeOfDay(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// At anchors the time of day onto a calendar date.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

// DayOf truncates a timestamp to its UTC calendar date.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type BreakWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// DayTemplate describes one weekday of a doctor's recurring schedule.
type DayTemplate struct {
	Enabled    bool          `json:"enabled"`
	Start      TimeOfDay     `json:"start"`
	End        TimeOfDay     `json:"end"`
	Breaks     []BreakWindow `json:"breaks,omitempty"`
	LocationID uuid.UUID     `json:"location_id,omitempty"`
}

// Validate enforces the break invariants: each break inside [Start,End),
// non-overlapping, sorted ascending.
func (d DayTemplate) Validate() error {
	if !d.Enabled {
		return nil
	}
	if d.Start >= d.End {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidTemplate, d.Start, d.End)
	}
	prevEnd := d.Start
	for _, br := range d.Breaks {
		if br.Start >= br.End {
			return fmt.Errorf("%w: break %s-%s is empty", ErrInvalidTemplate, br.Start, br.End)
		}
		if br.Start < d.Start || br.End > d.End {
			return fmt.Errorf("%w: break %s-%s outside working hours %s-%s", ErrInvalidTemplate, br.Start, br.End, d.Start, d.End)
		}
		if br.Start < prevEnd {
			return fmt.Errorf("%w: break %s-%s overlaps or is out of order", ErrInvalidTemplate, br.Start, br.End)
		}
		prevEnd = br.End
	}
	return nil
}

// InBreak reports whether [start,end) intersects any break window.
func (d DayTemplate) InBreak(start, end TimeOfDay) bool {
	for _, br := range d.Breaks {
		if start < br.End && br.Start < end {
			return true
		}
	}
	return false
}

// WeeklyTemplate is a doctor's recurring week, one entry per weekday indexed
// by time.Weekday (Sunday = 0).
type WeeklyTemplate struct {
	DoctorID  uuid.UUID
	Days      [7]DayTemplate
	UpdatedAt time.Time
}

func (w WeeklyTemplate) Validate() error {
	for wd, day := range w.Days {
		if err := day.Validate(); err != nil {
			return fmt.Errorf("%s: %w", time.Weekday(wd), err)
		}
	}
	return nil
}

// Day returns the template for a calendar date's weekday.
func (w WeeklyTemplate) Day(date time.Time) DayTemplate {
	return w.Days[date.Weekday()]
}

type LocationType string

const (
	LocationClinic     LocationType = "clinic"
	LocationHospital   LocationType = "hospital"
	LocationTelehealth LocationType = "telehealth"
)

type Location struct {
	ID        uuid.UUID
	Name      string
	Type      LocationType
	Address   string
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type LeaveType string

const (
	LeaveVacation   LeaveType = "vacation"
	LeaveConference LeaveType = "conference"
	LeaveTraining   LeaveType = "training"
	LeaveSick       LeaveType = "sick"
	LeaveEmergency  LeaveType = "emergency"
	LeavePersonal   LeaveType = "personal"
)

type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

// LeavePeriod is an absence window, dates inclusive on both ends.
type LeavePeriod struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	Type         LeaveType
	Title        string
	StartDate    time.Time
	EndDate      time.Time
	Status       LeaveStatus
	Reason       string
	SubstituteID *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Covers reports whether the leave includes the given calendar date.
func (l LeavePeriod) Covers(date time.Time) bool {
	d := DayOf(date)
	return !d.Before(DayOf(l.StartDate)) && !d.After(DayOf(l.EndDate))
}

// Overlaps reports whether two inclusive date ranges intersect.
func (l LeavePeriod) Overlaps(start, end time.Time) bool {
	return !DayOf(end).Before(DayOf(l.StartDate)) && !DayOf(start).After(DayOf(l.EndDate))
}
