package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/medportal/clinic-scheduling/internal/redis"
)

var ErrScheduleBusy = errors.New("doctor schedule is busy, please retry")

// LeaveConflictError is returned when approving a leave that overlaps
// existing non-cancelled appointments. The approval is refused and the
// affected appointment ids are surfaced so a human can reassign or cancel
// them explicitly; patient appointments are never auto-cancelled.
type LeaveConflictError struct {
	AppointmentIDs []uuid.UUID
}

func (e *LeaveConflictError) Error() string {
	return fmt.Sprintf("leave overlaps %d existing appointments", len(e.AppointmentIDs))
}

// AppointmentFinder is the slice of the appointment registry the leave
// workflow needs: which active appointments fall inside a date range.
type AppointmentFinder interface {
	FindActiveIDsInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]uuid.UUID, error)
}

type Service struct {
	repo   Repository
	appts  AppointmentFinder
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, appts AppointmentFinder, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		appts:  appts,
		locker: locker,
		log:    log.With().Str("component", "availability").Logger(),
	}
}

// SaveTemplate validates and stores a doctor's weekly working hours. It runs
// under the doctor lock because the template changes the validity of future
// placements.
func (s *Service) SaveTemplate(ctx context.Context, tmpl *WeeklyTemplate) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}

	err := s.locker.WithDoctorLock(ctx, tmpl.DoctorID, func(lockCtx context.Context) error {
		return s.repo.UpsertWeeklyTemplate(lockCtx, tmpl)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrScheduleBusy
		}
		return fmt.Errorf("save template: %w", err)
	}

	s.log.Info().Str("doctor_id", tmpl.DoctorID.String()).Msg("weekly template saved")
	return nil
}

func (s *Service) GetTemplate(ctx context.Context, doctorID uuid.UUID) (*WeeklyTemplate, error) {
	return s.repo.GetWeeklyTemplate(ctx, doctorID)
}

// SlotsForDay generates the bookable slots for one doctor and date.
func (s *Service) SlotsForDay(ctx context.Context, doctorID uuid.UUID, date time.Time, slotDuration, buffer int, now time.Time) ([]Slot, error) {
	tmpl, err := s.repo.GetWeeklyTemplate(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	approved := LeaveApproved
	leaves, err := s.repo.ListLeaves(ctx, doctorID, date, date, &approved)
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}

	return GenerateSlots(tmpl.Day(date), leaves, date, slotDuration, buffer, now)
}

// DayContext bundles everything the conflict engine needs to judge a
// placement on one date.
type DayContext struct {
	Day    DayTemplate
	Leaves []LeavePeriod
}

// ContextForDay loads the template day and approved leaves for a date.
func (s *Service) ContextForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DayContext, error) {
	tmpl, err := s.repo.GetWeeklyTemplate(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	approved := LeaveApproved
	leaves, err := s.repo.ListLeaves(ctx, doctorID, date, date, &approved)
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}

	return &DayContext{Day: tmpl.Day(date), Leaves: leaves}, nil
}

func (s *Service) GetLocation(ctx context.Context, id uuid.UUID) (*Location, error) {
	return s.repo.GetLocationByID(ctx, id)
}

func (s *Service) ListLocations(ctx context.Context, activeOnly bool) ([]Location, error) {
	return s.repo.ListLocations(ctx, activeOnly)
}

// SubmitLeave records a pending leave request.
func (s *Service) SubmitLeave(ctx context.Context, leave *LeavePeriod) (*LeavePeriod, error) {
	if DayOf(leave.EndDate).Before(DayOf(leave.StartDate)) {
		return nil, ErrInvalidLeave
	}

	created, err := s.repo.CreateLeave(ctx, leave)
	if err != nil {
		return nil, fmt.Errorf("create leave: %w", err)
	}

	s.log.Info().
		Str("leave_id", created.ID.String()).
		Str("doctor_id", created.DoctorID.String()).
		Str("type", string(created.Type)).
		Msg("leave submitted")

	return created, nil
}

// ApproveLeave moves a pending leave to approved. It refuses to approve when
// the period overlaps another approved leave, and surfaces a
// LeaveConflictError when non-cancelled appointments fall inside the period.
func (s *Service) ApproveLeave(ctx context.Context, leaveID uuid.UUID) (*LeavePeriod, error) {
	leave, err := s.repo.GetLeaveByID(ctx, leaveID)
	if err != nil {
		return nil, err
	}

	var approved *LeavePeriod
	err = s.locker.WithDoctorLock(ctx, leave.DoctorID, func(lockCtx context.Context) error {
		status := LeaveApproved
		existing, err := s.repo.ListLeaves(lockCtx, leave.DoctorID, leave.StartDate, leave.EndDate, &status)
		if err != nil {
			return fmt.Errorf("list approved leaves: %w", err)
		}
		for _, other := range existing {
			if other.ID != leave.ID {
				return ErrLeaveOverlap
			}
		}

		conflicting, err := s.appts.FindActiveIDsInRange(lockCtx, leave.DoctorID, leave.StartDate, leave.EndDate)
		if err != nil {
			return fmt.Errorf("find conflicting appointments: %w", err)
		}
		if len(conflicting) > 0 {
			return &LeaveConflictError{AppointmentIDs: conflicting}
		}

		approved, err = s.repo.UpdateLeaveStatus(lockCtx, leave.ID, LeavePending, LeaveApproved)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.log.Info().Str("leave_id", approved.ID.String()).Msg("leave approved")
	return approved, nil
}

func (s *Service) RejectLeave(ctx context.Context, leaveID uuid.UUID) (*LeavePeriod, error) {
	return s.repo.UpdateLeaveStatus(ctx, leaveID, LeavePending, LeaveRejected)
}

// CancelLeave cancels a pending or approved leave.
func (s *Service) CancelLeave(ctx context.Context, leaveID uuid.UUID) (*LeavePeriod, error) {
	cancelled, err := s.repo.UpdateLeaveStatus(ctx, leaveID, LeavePending, LeaveCancelled)
	if err == nil {
		return cancelled, nil
	}
	if !errors.Is(err, ErrLeaveNotFound) {
		return nil, err
	}
	return s.repo.UpdateLeaveStatus(ctx, leaveID, LeaveApproved, LeaveCancelled)
}

// AssignSubstitute attaches a covering doctor to a leave, which lets
// placements during the leave pass validation.
func (s *Service) AssignSubstitute(ctx context.Context, leaveID, substituteID uuid.UUID) (*LeavePeriod, error) {
	leave, err := s.repo.GetLeaveByID(ctx, leaveID)
	if err != nil {
		return nil, err
	}

	var updated *LeavePeriod
	err = s.locker.WithDoctorLock(ctx, leave.DoctorID, func(lockCtx context.Context) error {
		updated, err = s.repo.SetLeaveSubstitute(lockCtx, leaveID, &substituteID)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.log.Info().
		Str("leave_id", leaveID.String()).
		Str("substitute_id", substituteID.String()).
		Msg("substitute assigned")

	return updated, nil
}

// ListLeavesForDoctor returns all leaves intersecting the range, any status.
func (s *Service) ListLeavesForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]LeavePeriod, error) {
	return s.repo.ListLeaves(ctx, doctorID, from, to, nil)
}
