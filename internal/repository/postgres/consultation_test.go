package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return db, mock, NewStore(sqlx.NewDb(db, "postgres"))
}

func TestConsultationCreate_OrderConflict(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	doctorID := uuid.New()
	c := &model.Consultation{
		PatientID: uuid.New(),
		DoctorID:  &doctorID,
		Date:      model.NewDate(2024, time.January, 1),
		Time:      model.NewTimeOfDay(9, 0),
		Shift:     model.ShiftMorning,
		Order:     1,
		Priority:  model.DefaultPriority,
		Room:      "a101",
		Status:    model.ConsultationStatusWaiting,
	}

	mock.ExpectExec(`INSERT INTO consultations`).
		WithArgs(sqlmock.AnyArg(), c.PatientID, doctorID, "2024-01-01", "09:00:00", "morning", 1,
			"LEVEL_IV", "a101", "waiting", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: repository.ConstraintConsultationOrder})

	err := store.Consultations().Create(context.Background(), c)

	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrDuplicate))
	assert.True(t, repository.IsConstraint(err, repository.ConstraintConsultationOrder))
	assert.False(t, repository.IsConstraint(err, repository.ConstraintConsultationSlot))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationCountInGroup(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	doctorID := uuid.New()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM consultations`).
		WithArgs(doctorID, "2024-01-01", "morning").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := store.Consultations().CountInGroup(context.Background(), doctorID, model.NewDate(2024, time.January, 1), model.ShiftMorning)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationSlotTaken(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	doctorID := uuid.New()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(doctorID, "2024-01-01", "09:30:00", "a101").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := store.Consultations().SlotTaken(context.Background(), doctorID, model.NewDate(2024, time.January, 1), model.NewTimeOfDay(9, 30), "a101")

	require.NoError(t, err)
	assert.True(t, taken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationGet_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	c, err := store.Consultations().Get(context.Background(), id)

	assert.Nil(t, c)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationGet_ScansClinicalData(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	id, patientID, doctorID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "date", "time", "shift", "queue_order", "priority", "room", "status",
		"description", "service", "temperature", "systolic_pressure", "diastolic_pressure", "respiratory_rate", "pulse",
		"oxygen_saturation", "weight", "height", "history", "diagnosis", "instructions", "attended_at", "created_at", "updated_at",
	}).AddRow(
		id.String(), patientID.String(), doctorID.String(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "09:00:00", "morning", 2, "LEVEL_IV", "a101", "attended",
		"", "general", []byte("36.7"), nil, nil, 18, 72,
		nil, nil, nil, "", "flu", "rest", now, now, now,
	)
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnRows(rows)

	c, err := store.Consultations().Get(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusAttended, c.Status)
	assert.Equal(t, model.Monday, c.Date.Weekday())
	assert.Equal(t, model.NewTimeOfDay(9, 0), c.Time)
	require.NotNil(t, c.DoctorID)
	assert.Equal(t, doctorID, *c.DoctorID)
	require.NotNil(t, c.Temperature)
	assert.InDelta(t, 36.7, *c.Temperature, 0.001)
	require.NotNil(t, c.Pulse)
	assert.Equal(t, 72, *c.Pulse)
	assert.Nil(t, c.SystolicBP)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsultationUpdateStatus_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE consultations SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Consultations().UpdateStatus(context.Background(), &model.Consultation{
		Base:   model.Base{ID: uuid.New()},
		Status: model.ConsultationStatusCancelled,
	})

	assert.True(t, errors.Is(err, repository.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
