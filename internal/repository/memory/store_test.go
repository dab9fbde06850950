package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

func seedDoctor(t *testing.T, s *Store) (*model.Doctor, *model.Patient) {
	t.Helper()
	ctx := context.Background()

	account := &model.Account{Username: "drhouse", FirstName: "Gregory", LastName: "House", Role: model.RoleDoctor, IsActive: true}
	require.NoError(t, s.Accounts().Create(ctx, account))

	doctor := &model.Doctor{AccountID: account.ID}
	require.NoError(t, s.Doctors().Create(ctx, doctor))

	patient := &model.Patient{FirstName: "Ana", LastName: "Benitez", IdentificationNumber: "4567890"}
	require.NoError(t, s.Patients().Create(ctx, patient))

	return doctor, patient
}

func TestWithTx_RollsBackEveryWrite(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	doctor, _ := seedDoctor(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx repository.Store) error {
		err := tx.Availability().CreateBatch(ctx, []*model.AvailabilityWindow{{
			DoctorID:  doctor.ID,
			Day:       model.Monday,
			StartTime: model.NewTimeOfDay(8, 0),
			EndTime:   model.NewTimeOfDay(12, 0),
			Room:      "A101",
		}})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	windows, err := s.Availability().ListByDoctor(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestWithTx_RollbackKeepsWritesOutsideTransaction(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	started := make(chan struct{})
	done := make(chan error, 1)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Specialties().Create(ctx, &model.Specialty{Name: "Cardiology"}))
		go func() {
			close(started)
			done <- s.Patients().Create(ctx, &model.Patient{FirstName: "Luis", LastName: "Rojas", IdentificationNumber: "1234567"})
		}()
		<-started

		select {
		case err := <-done:
			t.Fatalf("write outside the transaction finished before it ended: %v", err)
		case <-time.After(20 * time.Millisecond):
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write outside the transaction never completed")
	}

	patient, err := s.Patients().GetByIdentification(ctx, "1234567")
	require.NoError(t, err)
	assert.Equal(t, "Luis", patient.FirstName)

	specialties, err := s.Specialties().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, specialties)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx repository.Store) error {
			require.NoError(t, tx.Specialties().Create(ctx, &model.Specialty{Name: "Cardiology"}))
			panic("boom")
		})
	})

	specialties, err := s.Specialties().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, specialties)
}

func TestConsultationConstraints(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	doctor, patient := seedDoctor(t, s)
	date := model.NewDate(2024, time.January, 1)

	newConsultation := func(order int, at model.TimeOfDay) *model.Consultation {
		return &model.Consultation{
			PatientID: patient.ID,
			DoctorID:  &doctor.ID,
			Date:      date,
			Time:      at,
			Shift:     model.ShiftMorning,
			Order:     order,
			Room:      "a101",
			Status:    model.ConsultationStatusWaiting,
		}
	}

	first := newConsultation(1, model.NewTimeOfDay(9, 0))
	require.NoError(t, s.Consultations().Create(ctx, first))

	err := s.Consultations().Create(ctx, newConsultation(1, model.NewTimeOfDay(9, 30)))
	assert.True(t, repository.IsConstraint(err, repository.ConstraintConsultationOrder))

	err = s.Consultations().Create(ctx, newConsultation(2, model.NewTimeOfDay(9, 0)))
	assert.True(t, repository.IsConstraint(err, repository.ConstraintConsultationSlot))

	// a cancelled consultation releases its slot but keeps its order
	first.Status = model.ConsultationStatusCancelled
	require.NoError(t, s.Consultations().UpdateStatus(ctx, first))
	require.NoError(t, s.Consultations().Create(ctx, newConsultation(2, model.NewTimeOfDay(9, 0))))

	n, err := s.Consultations().CountInGroup(ctx, doctor.ID, date, model.ShiftMorning)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	taken, err := s.Consultations().OrderTaken(ctx, doctor.ID, date, model.ShiftMorning, 1)
	require.NoError(t, err)
	assert.True(t, taken)

	maxOrder, err := s.Consultations().MaxOrderInGroup(ctx, doctor.ID, date, model.ShiftMorning)
	require.NoError(t, err)
	assert.Equal(t, 2, maxOrder)
}

func TestDeleteDoctorCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	doctor, patient := seedDoctor(t, s)

	require.NoError(t, s.Availability().CreateBatch(ctx, []*model.AvailabilityWindow{{
		DoctorID:  doctor.ID,
		Day:       model.Tuesday,
		StartTime: model.NewTimeOfDay(14, 0),
		EndTime:   model.NewTimeOfDay(18, 0),
		Room:      "B2",
	}}))
	c := &model.Consultation{
		PatientID: patient.ID,
		DoctorID:  &doctor.ID,
		Date:      model.NewDate(2024, time.January, 2),
		Time:      model.NewTimeOfDay(14, 0),
		Shift:     model.ShiftAfternoon,
		Order:     1,
		Room:      "b2",
		Status:    model.ConsultationStatusWaiting,
	}
	require.NoError(t, s.Consultations().Create(ctx, c))

	require.NoError(t, s.Accounts().Delete(ctx, doctor.AccountID))

	_, err := s.Doctors().Get(ctx, doctor.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	windows, err := s.Availability().ListByDoctor(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Empty(t, windows)

	stored, err := s.Consultations().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DoctorID)
}

func TestPatientIdentificationUnique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, patient := seedDoctor(t, s)

	err := s.Patients().Create(ctx, &model.Patient{FirstName: "Luis", IdentificationNumber: patient.IdentificationNumber})
	assert.True(t, repository.IsConstraint(err, repository.ConstraintPatientIdentifier))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	found, err := s.Patients().GetByIdentification(ctx, "4567890")
	require.NoError(t, err)
	assert.Equal(t, patient.ID, found.ID)
}

func TestOutboxPendingAndRetry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	event := &model.OutboxEvent{EventType: "consultation.booked", Payload: []byte(`{}`)}
	require.NoError(t, s.Outbox().Create(ctx, event))

	pending, err := s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	msg := "broker down"
	later := time.Now().Add(time.Hour)
	require.NoError(t, s.Outbox().UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &msg, &later))

	pending, err = s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, s.Outbox().UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil))
	deleted, err := s.Outbox().DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

}
