package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	templates map[uuid.UUID]*WeeklyTemplate
	locations map[uuid.UUID]*Location
	leaves    map[uuid.UUID]*LeavePeriod
}

func newMemRepo() *memRepo {
	return &memRepo{
		templates: make(map[uuid.UUID]*WeeklyTemplate),
		locations: make(map[uuid.UUID]*Location),
		leaves:    make(map[uuid.UUID]*LeavePeriod),
	}
}

func (m *memRepo) GetWeeklyTemplate(_ context.Context, doctorID uuid.UUID) (*WeeklyTemplate, error) {
	tmpl, ok := m.templates[doctorID]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	cp := *tmpl
	return &cp, nil
}

func (m *memRepo) UpsertWeeklyTemplate(_ context.Context, tmpl *WeeklyTemplate) error {
	cp := *tmpl
	cp.UpdatedAt = time.Now()
	m.templates[tmpl.DoctorID] = &cp
	return nil
}

func (m *memRepo) GetLocationByID(_ context.Context, id uuid.UUID) (*Location, error) {
	loc, ok := m.locations[id]
	if !ok {
		return nil, ErrLocationNotFound
	}
	cp := *loc
	return &cp, nil
}

func (m *memRepo) ListLocations(_ context.Context, activeOnly bool) ([]Location, error) {
	var out []Location
	for _, loc := range m.locations {
		if activeOnly && !loc.Active {
			continue
		}
		out = append(out, *loc)
	}
	return out, nil
}

func (m *memRepo) CreateLeave(_ context.Context, leave *LeavePeriod) (*LeavePeriod, error) {
	cp := *leave
	cp.ID = uuid.New()
	cp.Status = LeavePending
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.leaves[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) GetLeaveByID(_ context.Context, id uuid.UUID) (*LeavePeriod, error) {
	leave, ok := m.leaves[id]
	if !ok {
		return nil, ErrLeaveNotFound
	}
	cp := *leave
	return &cp, nil
}

func (m *memRepo) UpdateLeaveStatus(_ context.Context, id uuid.UUID, from, to LeaveStatus) (*LeavePeriod, error) {
	leave, ok := m.leaves[id]
	if !ok || leave.Status != from {
		return nil, ErrLeaveNotFound
	}
	leave.Status = to
	leave.UpdatedAt = time.Now()
	cp := *leave
	return &cp, nil
}

func (m *memRepo) SetLeaveSubstitute(_ context.Context, id uuid.UUID, substituteID *uuid.UUID) (*LeavePeriod, error) {
	leave, ok := m.leaves[id]
	if !ok {
		return nil, ErrLeaveNotFound
	}
	leave.SubstituteID = substituteID
	cp := *leave
	return &cp, nil
}

func (m *memRepo) ListLeaves(_ context.Context, doctorID uuid.UUID, from, to time.Time, status *LeaveStatus) ([]LeavePeriod, error) {
	var out []LeavePeriod
	for _, leave := range m.leaves {
		if leave.DoctorID != doctorID {
			continue
		}
		if status != nil && leave.Status != *status {
			continue
		}
		if !leave.Overlaps(from, to) {
			continue
		}
		out = append(out, *leave)
	}
	return out, nil
}

// noopLocker runs the callback without any real locking.
type noopLocker struct{}

func (noopLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	return fn(ctx)
}

// stubFinder returns a fixed set of appointment ids for any range.
type stubFinder struct {
	ids []uuid.UUID
}

func (s *stubFinder) FindActiveIDsInRange(context.Context, uuid.UUID, time.Time, time.Time) ([]uuid.UUID, error) {
	return s.ids, nil
}

func newTestService(repo Repository, finder AppointmentFinder) *Service {
	return NewService(repo, finder, noopLocker{}, zerolog.Nop())
}

func fullWeekTemplate(t *testing.T, doctorID uuid.UUID) *WeeklyTemplate {
	t.Helper()
	tmpl := &WeeklyTemplate{DoctorID: doctorID}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		tmpl.Days[wd] = weekdayTemplate(t)
	}
	return tmpl
}

func TestService_SaveAndGetTemplate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubFinder{})
	doctorID := uuid.New()

	err := svc.SaveTemplate(context.Background(), fullWeekTemplate(t, doctorID))
	require.NoError(t, err)

	got, err := svc.GetTemplate(context.Background(), doctorID)
	require.NoError(t, err)
	assert.True(t, got.Days[time.Monday].Enabled)
	assert.False(t, got.Days[time.Sunday].Enabled)
}

func TestService_SaveTemplate_Invalid(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubFinder{})
	doctorID := uuid.New()

	tmpl := fullWeekTemplate(t, doctorID)
	tmpl.Days[time.Tuesday].Breaks = []BreakWindow{
		{Start: mustTime(t, "07:00"), End: mustTime(t, "07:30")},
	}

	err := svc.SaveTemplate(context.Background(), tmpl)
	assert.ErrorIs(t, err, ErrInvalidTemplate)
	assert.Empty(t, repo.templates, "invalid template must not be stored")
}

func TestService_SlotsForDay(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubFinder{})
	doctorID := uuid.New()
	require.NoError(t, svc.SaveTemplate(context.Background(), fullWeekTemplate(t, doctorID)))

	monday := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	slots, err := svc.SlotsForDay(context.Background(), doctorID, monday, 30, 0, time.Time{})
	require.NoError(t, err)
	assert.Len(t, slots, 20)

	sunday := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	slots, err = svc.SlotsForDay(context.Background(), doctorID, sunday, 30, 0, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestService_LeaveLifecycle(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubFinder{})
	doctorID := uuid.New()

	leave, err := svc.SubmitLeave(context.Background(), &LeavePeriod{
		DoctorID:  doctorID,
		Type:      LeaveVacation,
		Title:     "Winter break",
		StartDate: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, LeavePending, leave.Status)

	approved, err := svc.ApproveLeave(context.Background(), leave.ID)
	require.NoError(t, err)
	assert.Equal(t, LeaveApproved, approved.Status)

	// Approving twice fails: the leave is no longer pending.
	_, err = svc.ApproveLeave(context.Background(), leave.ID)
	assert.Error(t, err)

	cancelled, err := svc.CancelLeave(context.Background(), leave.ID)
	require.NoError(t, err)
	assert.Equal(t, LeaveCancelled, cancelled.Status)
}

func TestService_SubmitLeave_InvalidRange(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubFinder{})

	_, err := svc.SubmitLeave(context.Background(), &LeavePeriod{
		DoctorID:  uuid.New(),
		StartDate: time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrInvalidLeave)
}

func TestService_ApproveLeave_OverlapRejected(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubFinder{})
	doctorID := uuid.New()

	first, err := svc.SubmitLeave(context.Background(), &LeavePeriod{
		DoctorID:  doctorID,
		Type:      LeaveVacation,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = svc.ApproveLeave(context.Background(), first.ID)
	require.NoError(t, err)

	second, err := svc.SubmitLeave(context.Background(), &LeavePeriod{
		DoctorID:  doctorID,
		Type:      LeaveConference,
		StartDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = svc.ApproveLeave(context.Background(), second.ID)
	assert.ErrorIs(t, err, ErrLeaveOverlap)
}

func TestService_ApproveLeave_AppointmentConflict(t *testing.T) {
	repo := newMemRepo()
	conflicting := []uuid.UUID{uuid.New(), uuid.New()}
	svc := newTestService(repo, &stubFinder{ids: conflicting})
	doctorID := uuid.New()

	leave, err := svc.SubmitLeave(context.Background(), &LeavePeriod{
		DoctorID:  doctorID,
		Type:      LeaveSick,
		StartDate: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = svc.ApproveLeave(context.Background(), leave.ID)
	var conflict *LeaveConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ElementsMatch(t, conflicting, conflict.AppointmentIDs)

	// The leave stays pending; nothing was auto-cancelled.
	stored, err := svc.ListLeavesForDoctor(context.Background(), doctorID,
		leave.StartDate, leave.EndDate)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, LeavePending, stored[0].Status)
}

func TestService_AssignSubstitute(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubFinder{})
	doctorID := uuid.New()
	substituteID := uuid.New()

	leave, err := svc.SubmitLeave(context.Background(), &LeavePeriod{
		DoctorID:  doctorID,
		Type:      LeaveConference,
		StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	updated, err := svc.AssignSubstitute(context.Background(), leave.ID, substituteID)
	require.NoError(t, err)
	require.NotNil(t, updated.SubstituteID)
	assert.Equal(t, substituteID, *updated.SubstituteID)
}
