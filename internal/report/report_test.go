package report

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-portal/internal/model"
)

func TestHTML(t *testing.T) {
	details := &model.ResultDetails{
		Result: model.Result{
			ID:              12,
			CreatedAt:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			UltrasoundImage: "https://cdn.example.com/ultrasound-images/a.png",
			Percentage:      "91.2",
			Diagnosis:       model.DiagnosisInfected,
			Status:          model.StatusConfirmed,
		},
		PatientName:     "Ana <Reyes>",
		DoctorFirstName: "Ben",
		DoctorLastName:  "Cruz",
	}

	out, err := HTML(details)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "Ultrasound Result #12")
	assert.Contains(t, html, "05-Mar-2024")
	assert.Contains(t, html, "Dr. Ben Cruz")
	assert.Contains(t, html, "Ana &lt;Reyes&gt;")
	assert.Contains(t, html, `src="https://cdn.example.com/ultrasound-images/a.png"`)
}

func TestHTML_PendingDiagnosis(t *testing.T) {
	out, err := HTML(&model.ResultDetails{Result: model.Result{Status: model.StatusToExamine}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Pending")
	assert.NotContains(t, string(out), "<img")
}

func TestWriteTemp_UniquePerCall(t *testing.T) {
	first, err := writeTemp(7, []byte("<p>one</p>"))
	require.NoError(t, err)
	defer os.Remove(first)

	second, err := writeTemp(7, []byte("<p>two</p>"))
	require.NoError(t, err)
	defer os.Remove(second)

	assert.NotEqual(t, first, second)

	require.NoError(t, os.Remove(first))
	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "<p>two</p>", string(data))
}
