package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location

	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Type,
		&l.Address,
		&l.Phone,
		&l.Active,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}

	return &l, nil
}

func scanLeave(row pgx.Row) (*LeavePeriod, error) {
	var l LeavePeriod
	var substitute *uuid.UUID

	err := row.Scan(
		&l.ID,
		&l.DoctorID,
		&l.Type,
		&l.Title,
		&l.StartDate,
		&l.EndDate,
		&l.Status,
		&l.Reason,
		&substitute,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeaveNotFound
		}
		return nil, err
	}

	l.SubstituteID = substitute
	return &l, nil
}

const leaveColumns = `id, doctor_id, leave_type, title, start_date, end_date, status, reason, substitute_id, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetWeeklyTemplate(ctx context.Context, doctorID uuid.UUID) (*WeeklyTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, enabled, start_minute, end_minute, breaks, location_id, updated_at
		FROM working_hours
		WHERE doctor_id = $1
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tmpl := WeeklyTemplate{DoctorID: doctorID}
	found := false
	for rows.Next() {
		var (
			weekday    int
			day        DayTemplate
			breaksJSON []byte
			locationID *uuid.UUID
			updatedAt  time.Time
		)
		if err := rows.Scan(&weekday, &day.Enabled, &day.Start, &day.End, &breaksJSON, &locationID, &updatedAt); err != nil {
			return nil, err
		}
		if weekday < 0 || weekday > 6 {
			return nil, fmt.Errorf("%w: weekday %d out of range", ErrInvalidTemplate, weekday)
		}
		if len(breaksJSON) > 0 {
			if err := json.Unmarshal(breaksJSON, &day.Breaks); err != nil {
				return nil, fmt.Errorf("decode breaks for weekday %d: %w", weekday, err)
			}
		}
		if locationID != nil {
			day.LocationID = *locationID
		}
		tmpl.Days[weekday] = day
		if updatedAt.After(tmpl.UpdatedAt) {
			tmpl.UpdatedAt = updatedAt
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTemplateNotFound
	}

	return &tmpl, nil
}

func (r *PgRepository) UpsertWeeklyTemplate(ctx context.Context, tmpl *WeeklyTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin template upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for weekday, day := range tmpl.Days {
		breaksJSON, err := json.Marshal(day.Breaks)
		if err != nil {
			return fmt.Errorf("encode breaks for weekday %d: %w", weekday, err)
		}

		var locationID *uuid.UUID
		if day.LocationID != uuid.Nil {
			id := day.LocationID
			locationID = &id
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO working_hours (doctor_id, weekday, enabled, start_minute, end_minute, breaks, location_id, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (doctor_id, weekday) DO UPDATE
			SET enabled = EXCLUDED.enabled,
			    start_minute = EXCLUDED.start_minute,
			    end_minute = EXCLUDED.end_minute,
			    breaks = EXCLUDED.breaks,
			    location_id = EXCLUDED.location_id,
			    updated_at = now()
		`, tmpl.DoctorID, weekday, day.Enabled, day.Start, day.End, breaksJSON, locationID)
		if err != nil {
			return fmt.Errorf("upsert weekday %d: %w", weekday, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetLocationByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, location_type, address, phone, active, created_at, updated_at
		FROM locations
		WHERE id = $1
	`, id)
	return scanLocation(row)
}

func (r *PgRepository) ListLocations(ctx context.Context, activeOnly bool) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, location_type, address, phone, active, created_at, updated_at
		FROM locations
		WHERE (NOT $1) OR active
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateLeave(ctx context.Context, leave *LeavePeriod) (*LeavePeriod, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leave_periods (id, doctor_id, leave_type, title, start_date, end_date, status, reason, substitute_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, now(), now())
		RETURNING `+leaveColumns+`
	`, id, leave.DoctorID, leave.Type, leave.Title, DayOf(leave.StartDate), DayOf(leave.EndDate), leave.Reason, leave.SubstituteID)

	return scanLeave(row)
}

func (r *PgRepository) GetLeaveByID(ctx context.Context, id uuid.UUID) (*LeavePeriod, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leaveColumns+`
		FROM leave_periods
		WHERE id = $1
	`, id)
	return scanLeave(row)
}

func (r *PgRepository) UpdateLeaveStatus(ctx context.Context, id uuid.UUID, from, to LeaveStatus) (*LeavePeriod, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leave_periods
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+leaveColumns+`
	`, id, to, from)

	return scanLeave(row)
}

func (r *PgRepository) SetLeaveSubstitute(ctx context.Context, id uuid.UUID, substituteID *uuid.UUID) (*LeavePeriod, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leave_periods
		SET substitute_id = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+leaveColumns+`
	`, id, substituteID)

	return scanLeave(row)
}

func (r *PgRepository) ListLeaves(ctx context.Context, doctorID uuid.UUID, from, to time.Time, status *LeaveStatus) ([]LeavePeriod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leaveColumns+`
		FROM leave_periods
		WHERE doctor_id = $1
		  AND start_date <= $3
		  AND end_date >= $2
		  AND ($4::text IS NULL OR status = $4)
		ORDER BY start_date
	`, doctorID, DayOf(from), DayOf(to), status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeavePeriod
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
