package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTemplateNotFound = errors.New("working hours template not found")
	ErrLocationNotFound = errors.New("location not found")
	ErrLeaveNotFound    = errors.New("leave period not found")
	ErrLeaveOverlap     = errors.New("approved leave already covers part of this period")
	ErrInvalidLeave     = errors.New("leave start date must not be after end date")
)

// Repository contains all DB interactions needed by the availability service.
type Repository interface {
	GetWeeklyTemplate(ctx context.Context, doctorID uuid.UUID) (*WeeklyTemplate, error)
	UpsertWeeklyTemplate(ctx context.Context, tmpl *WeeklyTemplate) error

	GetLocationByID(ctx context.Context, id uuid.UUID) (*Location, error)
	ListLocations(ctx context.Context, activeOnly bool) ([]Location, error)

	CreateLeave(ctx context.Context, leave *LeavePeriod) (*LeavePeriod, error)
	GetLeaveByID(ctx context.Context, id uuid.UUID) (*LeavePeriod, error)
	// UpdateLeaveStatus moves a leave from one status to another; it returns
	// ErrLeaveNotFound when no row matched id+from.
	UpdateLeaveStatus(ctx context.Context, id uuid.UUID, from, to LeaveStatus) (*LeavePeriod, error)
	SetLeaveSubstitute(ctx context.Context, id uuid.UUID, substituteID *uuid.UUID) (*LeavePeriod, error)
	// ListLeaves returns leaves for a doctor intersecting [from,to] inclusive,
	// optionally restricted to one status.
	ListLeaves(ctx context.Context, doctorID uuid.UUID, from, to time.Time, status *LeaveStatus) ([]LeavePeriod, error)
}
