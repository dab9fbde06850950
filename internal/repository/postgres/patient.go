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

const patientColumns = `id, first_name, last_name, email, phone, identification_type, identification_number,
	gender, date_of_birth, address_line, city, region, postal_code, country, blood_type, allergies,
	medical_notes, emergency_contact_name, emergency_contact_relationship, emergency_contact_phone,
	is_active, assigned_doctor_id, created_at, updated_at`

type patientRepository struct {
	db sqlx.ExtContext
}

func NewPatientRepository(db sqlx.ExtContext) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES (:id, :first_name, :last_name, :email, :phone, :identification_type, :identification_number,
			:gender, :date_of_birth, :address_line, :city, :region, :postal_code, :country, :blood_type, :allergies,
			:medical_notes, :emergency_contact_name, :emergency_contact_relationship, :emergency_contact_phone,
			:is_active, :assigned_doctor_id, :created_at, :updated_at)
	`
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, patient); err != nil {
		return fmt.Errorf("failed to create patient: %w", mapError(err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &patient, query, id); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", mapError(err))
	}
	return &patient, nil
}

func (r *patientRepository) GetByIdentification(ctx context.Context, number string) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE identification_number = $1`
	if err := sqlx.GetContext(ctx, r.db, &patient, query, number); err != nil {
		return nil, fmt.Errorf("failed to get patient by identification: %w", mapError(err))
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients SET
			first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
			identification_type = :identification_type, identification_number = :identification_number,
			gender = :gender, date_of_birth = :date_of_birth, address_line = :address_line, city = :city,
			region = :region, postal_code = :postal_code, country = :country, blood_type = :blood_type,
			allergies = :allergies, medical_notes = :medical_notes,
			emergency_contact_name = :emergency_contact_name,
			emergency_contact_relationship = :emergency_contact_relationship,
			emergency_contact_phone = :emergency_contact_phone,
			is_active = :is_active, assigned_doctor_id = :assigned_doctor_id, updated_at = :updated_at
		WHERE id = :id
	`
	patient.UpdatedAt = time.Now()
	result, err := sqlx.NamedExecContext(ctx, r.db, query, patient)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", mapError(err))
	}
	return expectAffected(result, "patient")
}

// Delete removes the patient; consultations and prescriptions cascade.
func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", mapError(err))
	}
	return expectAffected(result, "patient")
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	var w where
	limit, offset := 50, 0
	if filters != nil {
		if filters.AssignedDoctorID != nil {
			w.add("assigned_doctor_id = $%d", *filters.AssignedDoctorID)
		}
		if filters.Search != "" {
			w.add("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR identification_number LIKE $%[1]d)", "%"+filters.Search+"%")
		}
		limit, offset = filters.Limit(), filters.Offset()
	}

	query := `SELECT ` + patientColumns + ` FROM patients` + w.sql() +
		fmt.Sprintf(` ORDER BY last_name, first_name LIMIT %d OFFSET %d`, limit, offset)

	var patients []*model.Patient
	if err := sqlx.SelectContext(ctx, r.db, &patients, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM patients`); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return n, nil
}
