package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medportal/clinic-scheduling/internal/availability"
)

// Calendar builds the day/week/month read projections. It never writes;
// drag-and-drop rescheduling goes through Registry.Move.
type Calendar struct {
	repo  Repository
	avail AvailabilityReader
	now   func() time.Time
}

func NewCalendar(repo Repository, avail AvailabilityReader) *Calendar {
	return &Calendar{
		repo:  repo,
		avail: avail,
		now:   time.Now,
	}
}

// DaySlot is one rendered slot in a day view: the generated interval plus the
// appointment occupying it, if any.
type DaySlot struct {
	Slot        availability.Slot `json:"slot"`
	Appointment *Appointment      `json:"appointment,omitempty"`
}

type DayView struct {
	DoctorID     uuid.UUID     `json:"doctor_id"`
	Date         string        `json:"date"`
	OnLeave      bool          `json:"on_leave"`
	Slots        []DaySlot     `json:"slots"`
	Appointments []Appointment `json:"appointments"`
}

type DaySummary struct {
	Date             string `json:"date"`
	Enabled          bool   `json:"enabled"`
	OnLeave          bool   `json:"on_leave"`
	AppointmentCount int    `json:"appointment_count"`
}

type WeekView struct {
	DoctorID  uuid.UUID    `json:"doctor_id"`
	WeekStart string       `json:"week_start"`
	Days      []DaySummary `json:"days"`
}

type MonthView struct {
	DoctorID uuid.UUID    `json:"doctor_id"`
	Month    string       `json:"month"`
	Days     []DaySummary `json:"days"`
}

// DayView merges generated slots with the doctor's appointments and leave
// flags for one date.
func (c *Calendar) DayView(ctx context.Context, doctorID uuid.UUID, date time.Time, slotDuration, buffer int) (*DayView, error) {
	dayCtx, err := c.avail.ContextForDay(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	slots, err := availability.GenerateSlots(dayCtx.Day, dayCtx.Leaves, date, slotDuration, buffer, c.now())
	if err != nil {
		return nil, err
	}

	appts, err := c.repo.ListForDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	view := &DayView{
		DoctorID: doctorID,
		Date:     availability.DayOf(date).Format("2006-01-02"),
		OnLeave:  onApprovedLeave(dayCtx.Leaves, date),
	}

	for _, a := range appts {
		if a.Status.Active() {
			view.Appointments = append(view.Appointments, a)
		}
	}

	for _, slot := range slots {
		ds := DaySlot{Slot: slot}
		for i := range view.Appointments {
			a := &view.Appointments[i]
			if a.Overlaps(slot.Start, slot.End) {
				ds.Appointment = a
				break
			}
		}
		view.Slots = append(view.Slots, ds)
	}

	return view, nil
}

// WeekView summarizes the seven days starting from the Monday on or before
// weekStart.
func (c *Calendar) WeekView(ctx context.Context, doctorID uuid.UUID, weekStart time.Time) (*WeekView, error) {
	start := mondayOf(weekStart)
	end := start.AddDate(0, 0, 6)

	days, err := c.summarize(ctx, doctorID, start, end)
	if err != nil {
		return nil, err
	}

	return &WeekView{
		DoctorID:  doctorID,
		WeekStart: start.Format("2006-01-02"),
		Days:      days,
	}, nil
}

// MonthView summarizes every day of a calendar month.
func (c *Calendar) MonthView(ctx context.Context, doctorID uuid.UUID, year int, month time.Month) (*MonthView, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	days, err := c.summarize(ctx, doctorID, start, end)
	if err != nil {
		return nil, err
	}

	return &MonthView{
		DoctorID: doctorID,
		Month:    start.Format("2006-01"),
		Days:     days,
	}, nil
}

func (c *Calendar) summarize(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]DaySummary, error) {
	appts, err := c.repo.ListForDoctorRange(ctx, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	countByDate := make(map[string]int)
	for _, a := range appts {
		if a.Status.Active() {
			countByDate[availability.DayOf(a.Date).Format("2006-01-02")]++
		}
	}

	var days []DaySummary
	for d := availability.DayOf(start); !d.After(availability.DayOf(end)); d = d.AddDate(0, 0, 1) {
		dayCtx, err := c.avail.ContextForDay(ctx, doctorID, d)
		if err != nil {
			return nil, err
		}
		key := d.Format("2006-01-02")
		days = append(days, DaySummary{
			Date:             key,
			Enabled:          dayCtx.Day.Enabled,
			OnLeave:          onApprovedLeave(dayCtx.Leaves, d),
			AppointmentCount: countByDate[key],
		})
	}

	return days, nil
}

func onApprovedLeave(leaves []availability.LeavePeriod, date time.Time) bool {
	for _, l := range leaves {
		if l.Status == availability.LeaveApproved && l.Covers(date) {
			return true
		}
	}
	return false
}

// mondayOf returns the Monday on or before the given date.
func mondayOf(t time.Time) time.Time {
	d := availability.DayOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
