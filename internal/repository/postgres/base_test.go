package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	doctorID := uuid.New()
	start, end := model.NewTimeOfDay(8, 0), model.NewTimeOfDay(12, 0)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO availability_windows`).
		WithArgs(sqlmock.AnyArg(), doctorID, "MONDAY", "08:00:00", "12:00:00", "A101", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		if err := tx.Availability().CreateBatch(context.Background(), []*model.AvailabilityWindow{
			{DoctorID: doctorID, Day: model.Monday, StartTime: start, EndTime: end, Room: "A101"},
		}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_Commits(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM doctors`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx repository.Store) error {
		// nested calls join the outer transaction
		return tx.WithTx(context.Background(), func(inner repository.Store) error {
			return inner.Doctors().Delete(context.Background(), uuid.New())
		})
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityListByDoctor(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	doctorID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "doctor_id", "day", "start_time", "end_time", "room", "created_at", "updated_at"}).
		AddRow(uuid.New().String(), doctorID.String(), "MONDAY", "08:00:00", "12:00:00", "A101", now, now).
		AddRow(uuid.New().String(), doctorID.String(), []byte("WEDNESDAY"), "14:00:00", "18:00:00", "B2", now, now)

	mock.ExpectQuery(`SELECT id, doctor_id, day`).
		WithArgs(doctorID).
		WillReturnRows(rows)

	windows, err := store.Availability().ListByDoctor(context.Background(), doctorID)

	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, model.Monday, windows[0].Day)
	assert.Equal(t, model.NewTimeOfDay(12, 0), windows[0].EndTime)
	assert.Equal(t, model.Wednesday, windows[1].Day)
	assert.Equal(t, "B2", windows[1].Room)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientGetByIdentification_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM patients WHERE identification_number`).
		WithArgs("4567890").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := store.Patients().GetByIdentification(context.Background(), "4567890")

	assert.Nil(t, p)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCountByRole(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT role, COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).
			AddRow("doctor", 3).
			AddRow("reception", 2))

	counts, err := store.Accounts().CountByRole(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, counts[model.RoleDoctor])
	assert.Equal(t, 2, counts[model.RoleReception])
	assert.Equal(t, 0, counts[model.RoleAdministrator])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationsEmbedded(t *testing.T) {
	migrations, err := Migrations()

	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "0001_init", migrations[0].Version)
	assert.Contains(t, migrations[0].Up, "consultations_active_slot_key")
	assert.Contains(t, migrations[0].Down, "DROP TABLE IF EXISTS consultations")
}
