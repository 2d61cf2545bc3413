package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medportal/clinic-scheduling/internal/availability"
	"github.com/medportal/clinic-scheduling/internal/notify"
)

func newTestCalendar(store *memStore, avail AvailabilityReader) *Calendar {
	c := NewCalendar(store, avail)
	c.now = func() time.Time { return testClock }
	return c
}

func TestCalendar_DayView(t *testing.T) {
	store := newMemStore()
	avail := &fakeAvail{day: workday(t)}
	r := newTestRegistry(store, avail, notify.NopTrigger{})
	cal := newTestCalendar(store, avail)

	date := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	created, err := r.Create(context.Background(), Draft{
		DoctorID:        store.addDoctor(),
		PatientID:       store.addPatient("Sam Lee"),
		Date:            date,
		Start:           tod(t, "09:00"),
		DurationMinutes: 30,
		Type:            TypeConsultation,
	})
	require.NoError(t, err)

	view, err := cal.DayView(context.Background(), created.DoctorID, date, 30, 0)
	require.NoError(t, err)

	assert.Equal(t, "2026-02-02", view.Date)
	assert.False(t, view.OnLeave)
	require.Len(t, view.Appointments, 1)
	require.Len(t, view.Slots, 20)

	occupied := 0
	for _, ds := range view.Slots {
		if ds.Appointment != nil {
			occupied++
			assert.Equal(t, created.ID, ds.Appointment.ID)
			assert.Equal(t, tod(t, "09:00"), ds.Slot.Start)
		}
	}
	assert.Equal(t, 1, occupied)
}

func TestCalendar_DayView_CancelledHidden(t *testing.T) {
	store := newMemStore()
	avail := &fakeAvail{day: workday(t)}
	r := newTestRegistry(store, avail, notify.NopTrigger{})
	cal := newTestCalendar(store, avail)

	date := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	created, err := r.Create(context.Background(), testDraft(t, store, "09:00"))
	require.NoError(t, err)
	_, err = r.Cancel(context.Background(), created.ID)
	require.NoError(t, err)

	view, err := cal.DayView(context.Background(), created.DoctorID, date, 30, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Appointments)
	for _, ds := range view.Slots {
		assert.Nil(t, ds.Appointment)
	}
}

func TestCalendar_DayView_OnLeave(t *testing.T) {
	store := newMemStore()
	date := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)
	avail := &fakeAvail{
		day: workday(t),
		leaves: []availability.LeavePeriod{{
			StartDate: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC),
			Status:    availability.LeaveApproved,
		}},
	}
	cal := newTestCalendar(store, avail)

	view, err := cal.DayView(context.Background(), store.addDoctor(), date, 30, 0)
	require.NoError(t, err)
	assert.True(t, view.OnLeave)
	assert.Empty(t, view.Slots, "leave days generate no slots")
}

func TestCalendar_WeekView(t *testing.T) {
	store := newMemStore()
	avail := &fakeAvail{day: workday(t)}
	r := newTestRegistry(store, avail, notify.NopTrigger{})
	cal := newTestCalendar(store, avail)

	// 2026-02-04 is a Wednesday; the week starts Monday 2026-02-02.
	wednesday := time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
	created, err := r.Create(context.Background(), Draft{
		DoctorID:        store.addDoctor(),
		PatientID:       store.addPatient("Robin Shaw"),
		Date:            wednesday,
		Start:           tod(t, "09:00"),
		DurationMinutes: 30,
		Type:            TypeConsultation,
	})
	require.NoError(t, err)

	view, err := cal.WeekView(context.Background(), created.DoctorID, wednesday)
	require.NoError(t, err)

	assert.Equal(t, "2026-02-02", view.WeekStart)
	require.Len(t, view.Days, 7)
	assert.Equal(t, "2026-02-02", view.Days[0].Date)
	assert.Equal(t, "2026-02-08", view.Days[6].Date)

	for i, day := range view.Days {
		if day.Date == "2026-02-04" {
			assert.Equal(t, 1, day.AppointmentCount)
		} else {
			assert.Zero(t, day.AppointmentCount)
		}
		// fakeAvail enables every day of the week.
		assert.True(t, view.Days[i].Enabled)
	}
}

func TestCalendar_MonthView(t *testing.T) {
	store := newMemStore()
	avail := &fakeAvail{day: workday(t)}
	r := newTestRegistry(store, avail, notify.NopTrigger{})
	cal := newTestCalendar(store, avail)

	date := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	created, err := r.Create(context.Background(), Draft{
		DoctorID:        store.addDoctor(),
		PatientID:       store.addPatient("Casey Bloom"),
		Date:            date,
		Start:           tod(t, "14:00"),
		DurationMinutes: 30,
		Type:            TypeProcedure,
	})
	require.NoError(t, err)

	view, err := cal.MonthView(context.Background(), created.DoctorID, 2026, time.February)
	require.NoError(t, err)

	assert.Equal(t, "2026-02", view.Month)
	require.Len(t, view.Days, 28)
	assert.Equal(t, "2026-02-01", view.Days[0].Date)
	assert.Equal(t, "2026-02-28", view.Days[27].Date)

	total := 0
	for _, day := range view.Days {
		total += day.AppointmentCount
	}
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, view.Days[9].AppointmentCount)
}

func TestMondayOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-02-02", "2026-02-02"}, // Monday maps to itself
		{"2026-02-04", "2026-02-02"}, // Wednesday
		{"2026-02-08", "2026-02-02"}, // Sunday belongs to the preceding Monday
		{"2026-02-09", "2026-02-09"}, // next Monday
	}
	for _, tt := range tests {
		in, err := time.Parse("2006-01-02", tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, mondayOf(in).Format("2006-01-02"), "input %s", tt.in)
	}
}
