package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medportal/clinic-scheduling/internal/db"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Str("service", "seed").Logger()

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()

	locationIDs, err := seedLocations(seedCtx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("seed locations")
	}
	doctorIDs, err := seedDoctors(seedCtx, pool, 40)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	patientIDs, err := seedPatients(seedCtx, pool, 2000)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedWorkingHours(seedCtx, pool, doctorIDs, locationIDs); err != nil {
		log.Fatal().Err(err).Msg("seed working hours")
	}
	if err := seedAppointments(seedCtx, pool, doctorIDs, patientIDs, locationIDs); err != nil {
		log.Fatal().Err(err).Msg("seed appointments")
	}

	log.Info().Msg("seed complete")
}

func seedLocations(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	rows := []struct {
		name string
		typ  string
	}{
		{"Main Street Clinic", "clinic"},
		{"Riverside General Hospital", "hospital"},
		{"Northgate Family Practice", "clinic"},
		{"Telehealth", "telehealth"},
	}

	log.Info().Int("count", len(rows)).Msg("seeding locations")

	var ids []uuid.UUID
	for _, loc := range rows {
		id := uuid.New()
		_, err := pool.Exec(ctx, `
			INSERT INTO locations (id, name, location_type, address, phone, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
		`, id, loc.name, loc.typ, gofakeit.Address().Address, gofakeit.Phone())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	var ids []uuid.UUID
	for i := 0; i < count; i++ {
		id := uuid.New()
		specialty := specialties[i%len(specialties)]
		_, err := pool.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, "Dr. "+gofakeit.Name(), specialty)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding patients")

	var ids []uuid.UUID
	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := pool.Exec(ctx, `
			INSERT INTO patients (id, name, email, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, gofakeit.Name(), gofakeit.Email(), gofakeit.Phone())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedWorkingHours(ctx context.Context, pool *pgxpool.Pool, doctorIDs, locationIDs []uuid.UUID) error {
	log.Info().Int("doctors", len(doctorIDs)).Msg("seeding working hours")

	for i, doctorID := range doctorIDs {
		locationID := locationIDs[i%len(locationIDs)]
		for weekday := 0; weekday < 7; weekday++ {
			// Mon-Fri 08:00-18:00 with a 12:00-13:00 lunch break.
			enabled := weekday >= 1 && weekday <= 5
			breaks := `[]`
			start, end := 0, 0
			if enabled {
				start, end = 8*60, 18*60
				breaks = `[{"start":"12:00","end":"13:00"}]`
			}
			_, err := pool.Exec(ctx, `
				INSERT INTO working_hours (doctor_id, weekday, enabled, start_minute, end_minute, breaks, location_id, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now())
				ON CONFLICT (doctor_id, weekday) DO NOTHING
			`, doctorID, weekday, enabled, start, end, breaks, locationID)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctorIDs, patientIDs, locationIDs []uuid.UUID) error {
	log.Info().Msg("seeding a day of appointments")

	types := []string{"new-patient", "follow-up", "procedure", "teleconsult", "consultation"}
	priorities := []string{"low", "normal", "normal", "normal", "high"}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	patient := 0
	for i, doctorID := range doctorIDs {
		locationID := locationIDs[i%len(locationIDs)]
		// Morning block, back to back 30 minute visits.
		for slot := 0; slot < 6; slot++ {
			start := 8*60 + slot*30
			_, err := pool.Exec(ctx, `
				INSERT INTO appointments (id, doctor_id, patient_id, date, start_minute, duration_minutes,
					appointment_type, status, priority, location_id, room, notes, version, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 30, $6, 'scheduled', $7, $8, $9, '', 1, now(), now())
			`, uuid.New(), doctorID, patientIDs[patient%len(patientIDs)], date, start,
				gofakeit.RandomString(types), gofakeit.RandomString(priorities), locationID,
				gofakeit.Letter()+gofakeit.DigitN(2))
			if err != nil {
				return err
			}
			patient++
		}
	}
	return nil
}
