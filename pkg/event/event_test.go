package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func TestDiff(t *testing.T) {
	oldEmail, newEmail := "ana@example.com", "ana.b@example.com"
	before := model.Patient{FirstName: "Ana", City: "Asuncion", Email: &oldEmail}
	after := model.Patient{FirstName: "Ana", City: "Luque", Email: &newEmail}

	changes := Diff(&before, &after)

	assert.Len(t, changes, 2)
	assert.Equal(t, Change{Old: "Asuncion", New: "Luque"}, changes["city"])
	assert.Equal(t, Change{Old: oldEmail, New: newEmail}, changes["email"])

	only := Diff(before, after, "city")
	assert.Len(t, only, 1)

	assert.Empty(t, Diff(before, "not a patient"))
}

func TestConsultationPayload(t *testing.T) {
	doctorID := uuid.New()
	email := "ana@example.com"
	c := &model.Consultation{
		Base:      model.Base{ID: uuid.New()},
		PatientID: uuid.New(),
		DoctorID:  &doctorID,
		Date:      model.NewDate(2024, time.January, 1),
		Time:      model.NewTimeOfDay(9, 0),
		Shift:     model.ShiftMorning,
		Order:     1,
		Room:      "a101",
		Status:    model.ConsultationStatusWaiting,
	}

	payload := NewConsultation(c, &model.Patient{FirstName: "Ana", LastName: "Benitez", Email: &email}, nil)
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded Consultation
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "ana@example.com", decoded.PatientEmail)
	assert.Equal(t, "Ana Benitez", decoded.PatientName)
	assert.Equal(t, "2024-01-01", decoded.Date.String())
	assert.Equal(t, model.NewTimeOfDay(9, 0), decoded.Time)
	assert.Empty(t, decoded.DoctorName)
}
