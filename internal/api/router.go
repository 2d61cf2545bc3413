package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medportal/clinic-scheduling/internal/availability"
	"github.com/medportal/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	Registry     *schedule.Registry
	Calendar     *schedule.Calendar
	Availability *availability.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandler(cfg.Registry, cfg.Calendar, cfg.Availability)

	// Appointment endpoints
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.createAppointment)
		r.Get("/{id}", h.getAppointment)
		r.Post("/{id}/move", h.moveAppointment)
		r.Post("/{id}/check-in", h.transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
			return cfg.Registry.CheckIn(req.Context(), id)
		}))
		r.Post("/{id}/ready", h.transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
			return cfg.Registry.MarkReady(req.Context(), id)
		}))
		r.Post("/{id}/start", h.transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
			return cfg.Registry.Start(req.Context(), id)
		}))
		r.Post("/{id}/complete", h.transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
			return cfg.Registry.Complete(req.Context(), id)
		}))
		r.Post("/{id}/cancel", h.transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
			return cfg.Registry.Cancel(req.Context(), id)
		}))
		r.Post("/{id}/no-show", h.transitionHandler(func(req *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
			return cfg.Registry.MarkNoShow(req.Context(), id)
		}))
		r.Post("/{id}/notes", h.addNote)
	})

	// Doctor schedule reads and template writes
	r.Route("/doctors/{id}", func(r chi.Router) {
		r.Get("/slots", h.doctorSlots)
		r.Get("/queue", h.doctorQueue)
		r.Get("/calendar/day", h.dayView)
		r.Get("/calendar/week", h.weekView)
		r.Get("/calendar/month", h.monthView)
		r.Get("/template", h.getTemplate)
		r.Put("/template", h.putTemplate)
		r.Get("/leaves", h.doctorLeaves)
	})

	// Leave management
	r.Route("/leaves", func(r chi.Router) {
		r.Post("/", h.submitLeave)
		r.Post("/{id}/approve", h.leaveActionHandler(func(req *http.Request, id uuid.UUID) (*availability.LeavePeriod, error) {
			return cfg.Availability.ApproveLeave(req.Context(), id)
		}))
		r.Post("/{id}/reject", h.leaveActionHandler(func(req *http.Request, id uuid.UUID) (*availability.LeavePeriod, error) {
			return cfg.Availability.RejectLeave(req.Context(), id)
		}))
		r.Post("/{id}/cancel", h.leaveActionHandler(func(req *http.Request, id uuid.UUID) (*availability.LeavePeriod, error) {
			return cfg.Availability.CancelLeave(req.Context(), id)
		}))
		r.Post("/{id}/substitute", h.assignSubstitute)
	})

	r.Get("/locations", h.listLocations)
	r.Get("/locations/{id}", h.getLocation)

	return r
}
