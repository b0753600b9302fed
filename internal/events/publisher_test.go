package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"patient-portal/internal/events"
	"patient-portal/internal/model"
)

func TestResultCreatedEvent_Marshal(t *testing.T) {
	r := &model.Result{ID: 4, UserID: 9, DoctorID: 2, Diagnosis: model.DiagnosisInfected, CreatedAt: time.Now()}

	b, err := json.Marshal(events.NewResultCreatedEvent(r))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "result.created", decoded["event_type"])
	require.EqualValues(t, 9, decoded["patient_id"])
	require.EqualValues(t, 4, decoded["result_id"])
	require.Equal(t, "Infected", decoded["diagnosis"])
}
