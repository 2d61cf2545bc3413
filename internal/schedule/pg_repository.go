package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medportal/clinic-scheduling/internal/availability"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `id, doctor_id, patient_id, date, start_minute, duration_minutes,
	appointment_type, status, priority, location_id, room, notes, check_in_time, version, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var checkIn *time.Time

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.Start,
		&a.DurationMinutes,
		&a.Type,
		&a.Status,
		&a.Priority,
		&a.LocationID,
		&a.Room,
		&a.Notes,
		&checkIn,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CheckInTime = checkIn
	return &a, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email, phone *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	p.Phone = phone
	return &p, nil
}

func (r *PgRepository) collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Directory methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// Repository methods

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date = $2
		ORDER BY start_minute
	`, doctorID, availability.DayOf(date))
	if err != nil {
		return nil, err
	}
	return r.collectAppointments(rows)
}

func (r *PgRepository) ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, start_minute
	`, doctorID, availability.DayOf(from), availability.DayOf(to))
	if err != nil {
		return nil, err
	}
	return r.collectAppointments(rows)
}

func (r *PgRepository) ListForRoomDate(ctx context.Context, locationID uuid.UUID, room string, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE location_id = $1 AND room = $2 AND date = $3
		ORDER BY start_minute
	`, locationID, room, availability.DayOf(date))
	if err != nil {
		return nil, err
	}
	return r.collectAppointments(rows)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date, start_minute, duration_minutes,
			appointment_type, status, priority, location_id, room, notes, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8, $9, $10, $11, 1, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.DoctorID, appt.PatientID, availability.DayOf(appt.Date), appt.Start, appt.DurationMinutes,
		appt.Type, appt.Priority, appt.LocationID, appt.Room, appt.Notes)

	return scanAppointment(row)
}

func (r *PgRepository) UpdatePlacement(ctx context.Context, id uuid.UUID, version int64, date time.Time, start availability.TimeOfDay) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    start_minute = $3,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		  AND version = $4
		RETURNING `+appointmentColumns+`
	`, id, availability.DayOf(date), start, version)

	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, r.placementMiss(ctx, id)
	}
	return appt, err
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, version int64, to Status, checkInTime *time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    check_in_time = COALESCE($3, check_in_time),
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		  AND version = $4
		RETURNING `+appointmentColumns+`
	`, id, to, checkInTime, version)

	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, r.placementMiss(ctx, id)
	}
	return appt, err
}

func (r *PgRepository) AppendNote(ctx context.Context, id uuid.UUID, note string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, note)
	return scanAppointment(row)
}

// placementMiss distinguishes a vanished row from a version conflict after a
// guarded update matched nothing.
func (r *PgRepository) placementMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrConcurrentModification
	}
	return ErrAppointmentNotFound
}

func (r *PgRepository) FindActiveIDsInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM appointments
		WHERE doctor_id = $1
		  AND date >= $2 AND date <= $3
		  AND status <> 'cancelled'
		ORDER BY date, start_minute
	`, doctorID, availability.DayOf(from), availability.DayOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *PgRepository) ListDoctorsWithAppointments(ctx context.Context, date time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT doctor_id
		FROM appointments
		WHERE date = $1
		  AND status NOT IN ('completed', 'cancelled', 'no-show')
	`, availability.DayOf(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
