package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medportal/clinic-scheduling/internal/notify"
)

func checkedInAppt(t *testing.T, start string, priority Priority, checkIn time.Time) Appointment {
	t.Helper()
	return Appointment{
		ID:              uuid.New(),
		DoctorID:        uuid.New(),
		PatientID:       uuid.New(),
		Date:            time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Start:           tod(t, start),
		DurationMinutes: 30,
		Status:          StatusCheckedIn,
		Priority:        priority,
		CheckInTime:     &checkIn,
	}
}

func TestBuildQueue_FiltersStatuses(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	checkIn := now.Add(-5 * time.Minute)

	appts := []Appointment{
		checkedInAppt(t, "09:00", PriorityNormal, checkIn),
		{Status: StatusScheduled, Start: tod(t, "10:00")},
		{Status: StatusCompleted, Start: tod(t, "08:00")},
		{Status: StatusCancelled, Start: tod(t, "08:30")},
		{Status: StatusNoShow, Start: tod(t, "07:30")},
	}
	inProgress := checkedInAppt(t, "09:30", PriorityNormal, checkIn)
	inProgress.Status = StatusInProgress
	appts = append(appts, inProgress)

	entries := BuildQueue(appts, now, 15*time.Minute, OrderByTime)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, inQueue(e.Appointment.Status))
	}
}

func TestBuildQueue_WaitTimes(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	a := checkedInAppt(t, "09:00", PriorityNormal, now.Add(-25*time.Minute))
	b := checkedInAppt(t, "09:30", PriorityNormal, now.Add(-10*time.Minute))

	entries := BuildQueue([]Appointment{a, b}, now, 15*time.Minute, OrderByWaitTime)
	require.Len(t, entries, 2)

	// Longest wait first.
	assert.Equal(t, a.ID, entries[0].Appointment.ID)
	assert.Equal(t, 25, entries[0].WaitTimeMinutes)
	assert.True(t, entries[0].Waiting, "past the threshold")
	assert.Equal(t, 10, entries[1].WaitTimeMinutes)
	assert.False(t, entries[1].Waiting, "under the threshold")
}

func TestBuildQueue_WaitingLabelOnlyWhenCheckedIn(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	long := now.Add(-40 * time.Minute)

	ready := checkedInAppt(t, "09:00", PriorityNormal, long)
	ready.Status = StatusReady
	inProgress := checkedInAppt(t, "09:30", PriorityNormal, long)
	inProgress.Status = StatusInProgress

	entries := BuildQueue([]Appointment{ready, inProgress}, now, 15*time.Minute, OrderByTime)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.False(t, e.Waiting, "%s patients are being handled, not waiting", e.Appointment.Status)
		assert.Equal(t, 40, e.WaitTimeMinutes, "wait time still accrues")
	}
}

func TestBuildQueue_PriorityOrder(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	normal := checkedInAppt(t, "08:30", PriorityNormal, now.Add(-60*time.Minute))
	emergency := checkedInAppt(t, "09:45", PriorityEmergency, now.Add(-2*time.Minute))
	high := checkedInAppt(t, "09:00", PriorityHigh, now.Add(-30*time.Minute))
	low := checkedInAppt(t, "08:00", PriorityLow, now.Add(-90*time.Minute))

	entries := BuildQueue([]Appointment{normal, emergency, high, low}, now, 15*time.Minute, OrderByPriority)
	require.Len(t, entries, 4)

	assert.Equal(t, emergency.ID, entries[0].Appointment.ID)
	assert.Equal(t, high.ID, entries[1].Appointment.ID)
	assert.Equal(t, normal.ID, entries[2].Appointment.ID)
	assert.Equal(t, low.ID, entries[3].Appointment.ID)
}

func TestBuildQueue_PriorityTieBreaksByCheckIn(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	// Two high-priority patients; the one who checked in earlier goes first
	// even though it was appended later.
	later := checkedInAppt(t, "09:05", PriorityHigh, now.Add(-10*time.Minute))
	earlier := checkedInAppt(t, "09:00", PriorityHigh, now.Add(-20*time.Minute))

	entries := BuildQueue([]Appointment{later, earlier}, now, 15*time.Minute, OrderByPriority)
	require.Len(t, entries, 2)
	assert.Equal(t, earlier.ID, entries[0].Appointment.ID)
	assert.Equal(t, later.ID, entries[1].Appointment.ID)
}

func TestBuildQueue_StableOnEqualKeys(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	sameCheckIn := now.Add(-10 * time.Minute)

	first := checkedInAppt(t, "09:00", PriorityHigh, sameCheckIn)
	second := checkedInAppt(t, "09:05", PriorityHigh, sameCheckIn)

	// Fully equal sort keys: input order is preserved.
	entries := BuildQueue([]Appointment{first, second}, now, 15*time.Minute, OrderByPriority)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].Appointment.ID)
	assert.Equal(t, second.ID, entries[1].Appointment.ID)

	// Same input reversed keeps the reversed order.
	entries = BuildQueue([]Appointment{second, first}, now, 15*time.Minute, OrderByPriority)
	assert.Equal(t, second.ID, entries[0].Appointment.ID)
}

func TestBuildQueue_OrderByTime(t *testing.T) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	b := checkedInAppt(t, "09:30", PriorityEmergency, now.Add(-5*time.Minute))
	a := checkedInAppt(t, "09:00", PriorityLow, now.Add(-50*time.Minute))

	entries := BuildQueue([]Appointment{b, a}, now, 15*time.Minute, OrderByTime)
	require.Len(t, entries, 2)
	assert.Equal(t, a.ID, entries[0].Appointment.ID, "appointment time order ignores priority")
}

func TestRegistry_QueueForDoctor(t *testing.T) {
	store := newMemStore()
	r := newTestRegistry(store, &fakeAvail{day: workday(t)}, notify.NopTrigger{})

	doctorID := store.addDoctor()
	patientID := store.addPatient("Morgan Price")

	created, err := r.Create(context.Background(), Draft{
		DoctorID:        doctorID,
		PatientID:       patientID,
		Date:            time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Start:           tod(t, "09:00"),
		DurationMinutes: 30,
		Type:            TypeConsultation,
	})
	require.NoError(t, err)
	_, err = r.CheckIn(context.Background(), created.ID)
	require.NoError(t, err)

	entries, err := r.QueueForDoctor(context.Background(), doctorID, created.Date, OrderByTime)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Morgan Price", entries[0].PatientName)
}

func TestRegistry_Snapshot(t *testing.T) {
	store := newMemStore()
	r := newTestRegistry(store, &fakeAvail{day: workday(t)}, notify.NopTrigger{})

	doctorID := store.addDoctor()
	date := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	created, err := r.Create(context.Background(), Draft{
		DoctorID:        doctorID,
		PatientID:       store.addPatient("Jamie Fox"),
		Date:            date,
		Start:           tod(t, "09:00"),
		DurationMinutes: 30,
		Type:            TypeConsultation,
		Priority:        PriorityHigh,
	})
	require.NoError(t, err)
	_, err = r.CheckIn(context.Background(), created.ID)
	require.NoError(t, err)

	snap, err := r.Snapshot(context.Background(), doctorID, date, OrderByPriority)
	require.NoError(t, err)
	assert.Equal(t, doctorID, snap.DoctorID)
	assert.Equal(t, "2026-02-02", snap.Date)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, created.ID, snap.Entries[0].AppointmentID)
	assert.Equal(t, PriorityHigh, snap.Entries[0].Priority)
	assert.Equal(t, "Jamie Fox", snap.Entries[0].PatientName)
}

func TestRegistry_ActiveDoctors(t *testing.T) {
	store := newMemStore()
	r := newTestRegistry(store, &fakeAvail{day: workday(t)}, notify.NopTrigger{})
	date := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	busy, err := r.Create(context.Background(), testDraft(t, store, "09:00"))
	require.NoError(t, err)

	done, err := r.Create(context.Background(), testDraft(t, store, "10:00"))
	require.NoError(t, err)
	_, err = r.Cancel(context.Background(), done.ID)
	require.NoError(t, err)

	doctors, err := r.ActiveDoctors(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, busy.DoctorID, doctors[0])
}
