package email

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/event"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func booked() event.Consultation {
	return event.Consultation{
		ConsultationID: uuid.New(),
		Date:           model.NewDate(2024, 1, 1),
		Time:           model.NewTimeOfDay(9, 0),
		Shift:          model.ShiftMorning,
		Order:          1,
		Room:           "a101",
		PatientName:    "Ana Benitez",
		PatientEmail:   "ana@example.com",
		DoctorName:     "Gregory House",
	}
}

func TestSendBookingConfirmation(t *testing.T) {
	d := &fakeDialer{}
	svc := &SMTPService{dialer: d, from: "no-reply@clinic.local"}

	require.NoError(t, svc.SendBookingConfirmation(context.Background(), booked()))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Consultation booked"}, d.sent[0].GetHeader("Subject"))
}

func TestRenderBooking(t *testing.T) {
	body, err := render(bookingTemplate, booked())
	require.NoError(t, err)
	assert.Contains(t, body, "Dr. Gregory House")
	assert.Contains(t, body, "2024-01-01 at 09:00, room a101")
	assert.Contains(t, body, "number 1 in the morning queue")
}

func TestSendFailureIsWrapped(t *testing.T) {
	svc := &SMTPService{dialer: &fakeDialer{err: errors.New("connection refused")}}
	err := svc.SendCustom(context.Background(), "ana@example.com", "hi", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ana@example.com")
}
