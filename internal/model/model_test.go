package model_test

import (
	"testing"
	"time"

	"patient-portal/internal/model"

	"github.com/stretchr/testify/require"
)

func TestValidRole(t *testing.T) {
	require.True(t, model.ValidRole("admin"))
	require.True(t, model.ValidRole("doctor"))
	require.True(t, model.ValidRole("patient"))
	require.False(t, model.ValidRole("Admin"))
	require.False(t, model.ValidRole(""))
}

func TestValidDiagnosisAndStatus(t *testing.T) {
	require.True(t, model.ValidDiagnosis(""))
	require.True(t, model.ValidDiagnosis("Infected"))
	require.False(t, model.ValidDiagnosis("pending"))

	require.True(t, model.ValidStatus("to examine"))
	require.False(t, model.ValidStatus(""))
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := &model.Session{ExpiresAt: now}
	require.True(t, s.Expired(now))
	require.False(t, s.Expired(now.Add(-time.Second)))
}

func TestResultDetailsDoctorName(t *testing.T) {
	d := &model.ResultDetails{DoctorFirstName: "Ben", DoctorLastName: "Cruz"}
	require.Equal(t, "Ben Cruz", d.DoctorName())
	require.Equal(t, "Ben", (&model.ResultDetails{DoctorFirstName: "Ben"}).DoctorName())
}
