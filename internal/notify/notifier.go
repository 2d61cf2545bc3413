// Package notify is the outbound notification trigger. Delivery (SMS, email)
// belongs to an external system; this package only announces schedule changes,
// fire-and-forget. Failures are logged, never propagated to the caller.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentMoved     = "APPOINTMENT_MOVED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

// Event describes one schedule change for downstream messaging.
type Event struct {
	Type          string         `json:"type"`
	AppointmentID uuid.UUID      `json:"appointment_id"`
	DoctorID      uuid.UUID      `json:"doctor_id"`
	PatientID     uuid.UUID      `json:"patient_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Details       map[string]any `json:"details,omitempty"`
}

// Trigger is invoked after successful create/move/cancel operations.
type Trigger interface {
	Notify(ctx context.Context, ev Event)
}

// LogTrigger writes events to the structured log only. Useful in dev and as a
// fallback when no broker is configured.
type LogTrigger struct {
	log zerolog.Logger
}

func NewLogTrigger(log zerolog.Logger) *LogTrigger {
	return &LogTrigger{log: log.With().Str("component", "notify").Logger()}
}

func (t *LogTrigger) Notify(_ context.Context, ev Event) {
	t.log.Info().
		Str("event", ev.Type).
		Str("appointment_id", ev.AppointmentID.String()).
		Str("patient_id", ev.PatientID.String()).
		Msg("notification triggered")
}

const channel = "notifications:appointments"

// RedisTrigger publishes events on a Redis channel for the external
// messaging system to consume.
type RedisTrigger struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisTrigger(client *redis.Client, log zerolog.Logger) *RedisTrigger {
	return &RedisTrigger{
		client: client,
		log:    log.With().Str("component", "notify").Logger(),
	}
}

func (t *RedisTrigger) Notify(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		t.log.Error().Err(err).Str("event", ev.Type).Msg("marshal notification")
		return
	}

	if err := t.client.Publish(ctx, channel, payload).Err(); err != nil {
		t.log.Warn().Err(err).Str("event", ev.Type).Msg("publish notification")
	}
}

// NopTrigger discards all events.
type NopTrigger struct{}

func (NopTrigger) Notify(context.Context, Event) {}
