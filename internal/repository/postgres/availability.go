package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type availabilityRepository struct {
	db sqlx.ExtContext
}

func NewAvailabilityRepository(db sqlx.ExtContext) repository.AvailabilityRepository {
	return &availabilityRepository{db: db}
}

// CreateBatch inserts every window or none; callers run it inside a transaction.
func (r *availabilityRepository) CreateBatch(ctx context.Context, windows []*model.AvailabilityWindow) error {
	query := `
		INSERT INTO availability_windows (id, doctor_id, day, start_time, end_time, room, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now()
	for i, w := range windows {
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		w.CreatedAt = now
		w.UpdatedAt = now

		_, err := r.db.ExecContext(ctx, query, w.ID, w.DoctorID, w.Day, w.StartTime, w.EndTime, w.Room, w.CreatedAt, w.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create availability window %d: %w", i+1, mapError(err))
		}
	}
	return nil
}

func (r *availabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	query := `
		SELECT id, doctor_id, day, start_time, end_time, room, created_at, updated_at
		FROM availability_windows
		WHERE doctor_id = $1
		ORDER BY array_position(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY','SATURDAY','SUNDAY']::varchar[], day), start_time
	`
	var windows []*model.AvailabilityWindow
	if err := sqlx.SelectContext(ctx, r.db, &windows, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	return windows, nil
}

func (r *availabilityRepository) Delete(ctx context.Context, doctorID, windowID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = $1 AND doctor_id = $2`, windowID, doctorID)
	if err != nil {
		return fmt.Errorf("failed to delete availability window: %w", mapError(err))
	}
	return expectAffected(result, "availability window")
}
