package availability

import (
	"time"
)

// Slot is one bookable interval derived from a day template. Break-marked and
// past-marked slots are kept in the output so calendars can render them, but
// they are never bookable.
type Slot struct {
	Start   TimeOfDay `json:"start"`
	End     TimeOfDay `json:"end"`
	IsBreak bool      `json:"is_break"`
	IsPast  bool      `json:"is_past"`
}

// Bookable reports whether the slot can accept a new appointment.
func (s Slot) Bookable() bool {
	return !s.IsBreak && !s.IsPast
}

// GenerateSlots walks a doctor's day template from start to end in increments
// of slotDuration+buffer minutes. Slots intersecting a break window are marked
// IsBreak; slots whose start has already passed (relative to now, for today's
// date) are marked IsPast. A disabled day or a day covered by an approved
// leave yields no slots.
func GenerateSlots(day DayTemplate, leaves []LeavePeriod, date time.Time, slotDuration, buffer int, now time.Time) ([]Slot, error) {
	if slotDuration <= 0 {
		return nil, ErrInvalidTemplate
	}
	if err := day.Validate(); err != nil {
		return nil, err
	}
	if !day.Enabled {
		return nil, nil
	}
	for _, leave := range leaves {
		if leave.Status == LeaveApproved && leave.Covers(date) {
			return nil, nil
		}
	}

	today := DayOf(now).Equal(DayOf(date))

	var slots []Slot
	step := TimeOfDay(slotDuration + buffer)
	for start := day.Start; start+TimeOfDay(slotDuration) <= day.End; start += step {
		end := start + TimeOfDay(slotDuration)
		slot := Slot{
			Start:   start,
			End:     end,
			IsBreak: day.InBreak(start, end),
		}
		if today && start.At(DayOf(date)).Before(now) {
			slot.IsPast = true
		}
		slots = append(slots, slot)
	}

	return slots, nil
}
