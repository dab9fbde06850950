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

const consultationColumns = `id, patient_id, doctor_id, date, time, shift, queue_order, priority, room, status,
	description, service, temperature, systolic_pressure, diastolic_pressure, respiratory_rate, pulse,
	oxygen_saturation, weight, height, history, diagnosis, instructions, attended_at, created_at, updated_at`

type consultationRepository struct {
	db sqlx.ExtContext
}

func NewConsultationRepository(db sqlx.ExtContext) repository.ConsultationRepository {
	return &consultationRepository{db: db}
}

func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (id, patient_id, doctor_id, date, time, shift, queue_order,
			priority, room, status, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.PatientID,
		c.DoctorID,
		c.Date,
		c.Time,
		c.Shift,
		c.Order,
		c.Priority,
		c.Room,
		c.Status,
		c.Description,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", mapError(err))
	}
	return nil
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	var c model.Consultation
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &c, query, id); err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", mapError(err))
	}
	return &c, nil
}

func (r *consultationRepository) UpdateStatus(ctx context.Context, c *model.Consultation) error {
	query := `
		UPDATE consultations SET
			status = $1, service = $2, temperature = $3, systolic_pressure = $4, diastolic_pressure = $5,
			respiratory_rate = $6, pulse = $7, oxygen_saturation = $8, weight = $9, height = $10,
			history = $11, diagnosis = $12, instructions = $13, attended_at = $14, updated_at = $15
		WHERE id = $16 AND status = 'waiting'
	`
	c.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		c.Status,
		c.Service,
		c.Temperature,
		c.SystolicBP,
		c.DiastolicBP,
		c.RespiratoryRate,
		c.Pulse,
		c.OxygenSaturation,
		c.Weight,
		c.Height,
		c.History,
		c.Diagnosis,
		c.Instructions,
		c.AttendedAt,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultation status: %w", mapError(err))
	}
	return expectAffected(result, "consultation")
}

func (r *consultationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete consultation: %w", mapError(err))
	}
	return expectAffected(result, "consultation")
}

func (r *consultationRepository) List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error) {
	var w where
	if filters != nil {
		if filters.DoctorID != nil {
			w.add("doctor_id = $%d", *filters.DoctorID)
		}
		if filters.PatientID != nil {
			w.add("patient_id = $%d", *filters.PatientID)
		}
		if filters.Date != nil {
			w.add("date = $%d", *filters.Date)
		}
		if filters.Shift != "" {
			w.add("shift = $%d", filters.Shift)
		}
		if filters.Status != "" {
			w.add("status = $%d", filters.Status)
		}
	}

	query := `SELECT ` + consultationColumns + ` FROM consultations` + w.sql() + `
		ORDER BY date, array_position(ARRAY['morning','afternoon','evening']::varchar[], shift), queue_order`

	var consultations []*model.Consultation
	if err := sqlx.SelectContext(ctx, r.db, &consultations, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, nil
}

func (r *consultationRepository) CountInGroup(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM consultations WHERE doctor_id = $1 AND date = $2 AND shift = $3`
	if err := sqlx.GetContext(ctx, r.db, &n, query, doctorID, date, shift); err != nil {
		return 0, fmt.Errorf("failed to count consultations: %w", err)
	}
	return n, nil
}

func (r *consultationRepository) MaxOrderInGroup(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift) (int, error) {
	var n int
	query := `SELECT COALESCE(MAX(queue_order), 0) FROM consultations WHERE doctor_id = $1 AND date = $2 AND shift = $3`
	if err := sqlx.GetContext(ctx, r.db, &n, query, doctorID, date, shift); err != nil {
		return 0, fmt.Errorf("failed to get max queue order: %w", err)
	}
	return n, nil
}

func (r *consultationRepository) OrderTaken(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift, order int) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM consultations WHERE doctor_id = $1 AND date = $2 AND shift = $3 AND queue_order = $4)`
	if err := sqlx.GetContext(ctx, r.db, &taken, query, doctorID, date, shift, order); err != nil {
		return false, fmt.Errorf("failed to check queue order: %w", err)
	}
	return taken, nil
}

func (r *consultationRepository) SlotTaken(ctx context.Context, doctorID uuid.UUID, date model.Date, t model.TimeOfDay, room string) (bool, error) {
	var taken bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE doctor_id = $1 AND date = $2 AND time = $3 AND room = $4 AND status <> 'cancelled'
		)
	`
	if err := sqlx.GetContext(ctx, r.db, &taken, query, doctorID, date, t, room); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

type prescriptionRepository struct {
	db sqlx.ExtContext
}

func NewPrescriptionRepository(db sqlx.ExtContext) repository.PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (id, consultation_id, doctor_id, medication, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx, query, p.ID, p.ConsultationID, p.DoctorID, p.Medication, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", mapError(err))
	}
	return nil
}

func (r *prescriptionRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Prescription, error) {
	var prescriptions []*model.Prescription
	query := `
		SELECT id, consultation_id, doctor_id, medication, description, created_at, updated_at
		FROM prescriptions WHERE consultation_id = $1 ORDER BY created_at
	`
	if err := sqlx.SelectContext(ctx, r.db, &prescriptions, query, consultationID); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}
