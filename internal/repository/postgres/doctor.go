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

type specialtyRepository struct {
	db sqlx.ExtContext
}

func NewSpecialtyRepository(db sqlx.ExtContext) repository.SpecialtyRepository {
	return &specialtyRepository{db: db}
}

func (r *specialtyRepository) Create(ctx context.Context, specialty *model.Specialty) error {
	query := `
		INSERT INTO specialties (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if specialty.ID == uuid.Nil {
		specialty.ID = uuid.New()
	}
	specialty.CreatedAt = time.Now()
	specialty.UpdatedAt = specialty.CreatedAt

	_, err := r.db.ExecContext(ctx, query, specialty.ID, specialty.Name, specialty.Description, specialty.CreatedAt, specialty.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create specialty: %w", mapError(err))
	}
	return nil
}

func (r *specialtyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Specialty, error) {
	var specialty model.Specialty
	query := `SELECT id, name, description, created_at, updated_at FROM specialties WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &specialty, query, id); err != nil {
		return nil, fmt.Errorf("failed to get specialty: %w", mapError(err))
	}
	return &specialty, nil
}

func (r *specialtyRepository) List(ctx context.Context) ([]*model.Specialty, error) {
	var specialties []*model.Specialty
	query := `SELECT id, name, description, created_at, updated_at FROM specialties ORDER BY name`
	if err := sqlx.SelectContext(ctx, r.db, &specialties, query); err != nil {
		return nil, fmt.Errorf("failed to list specialties: %w", err)
	}
	return specialties, nil
}

func (r *specialtyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM specialties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete specialty: %w", mapError(err))
	}
	return expectAffected(result, "specialty")
}

type doctorRepository struct {
	db sqlx.ExtContext
}

func NewDoctorRepository(db sqlx.ExtContext) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

const doctorSelect = `
	SELECT d.id, d.account_id, d.specialty_id, d.bio, d.created_at, d.updated_at,
		a.first_name, a.last_name, COALESCE(s.name, '') AS specialty_name
	FROM doctors d
	JOIN accounts a ON a.id = d.account_id
	LEFT JOIN specialties s ON s.id = d.specialty_id
`

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (id, account_id, specialty_id, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = doctor.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.AccountID,
		doctor.SpecialtyID,
		doctor.Bio,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", mapError(err))
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := sqlx.GetContext(ctx, r.db, &doctor, doctorSelect+` WHERE d.id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", mapError(err))
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := sqlx.GetContext(ctx, r.db, &doctor, doctorSelect+` WHERE d.account_id = $1`, accountID); err != nil {
		return nil, fmt.Errorf("failed to get doctor by account: %w", mapError(err))
	}
	return &doctor, nil
}

func (r *doctorRepository) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	var w where
	if filters != nil {
		if filters.SpecialtyID != nil {
			w.add("d.specialty_id = $%d", *filters.SpecialtyID)
		}
		if filters.Search != "" {
			w.add("(a.first_name ILIKE $%[1]d OR a.last_name ILIKE $%[1]d)", "%"+filters.Search+"%")
		}
	}

	var doctors []*model.Doctor
	query := doctorSelect + w.sql() + ` ORDER BY a.last_name, a.first_name`
	if err := sqlx.SelectContext(ctx, r.db, &doctors, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

// Delete removes the doctor; the schema cascades windows and nulls consultation references.
func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", mapError(err))
	}
	return expectAffected(result, "doctor")
}
