package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogTrigger_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	trigger := NewLogTrigger(zerolog.New(&buf))

	apptID := uuid.New()
	patientID := uuid.New()
	trigger.Notify(context.Background(), Event{
		Type:          EventAppointmentCreated,
		AppointmentID: apptID,
		PatientID:     patientID,
		OccurredAt:    time.Now(),
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, EventAppointmentCreated, line["event"])
	assert.Equal(t, apptID.String(), line["appointment_id"])
	assert.Equal(t, patientID.String(), line["patient_id"])
	assert.Equal(t, "notify", line["component"])
}

func TestNopTrigger(t *testing.T) {
	// Must be a safe default wherever no delivery is wanted.
	NopTrigger{}.Notify(context.Background(), Event{Type: EventAppointmentCancelled})
}
