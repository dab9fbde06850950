package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Unique constraints the services react to.
const (
	ConstraintConsultationOrder = "consultations_doctor_date_shift_order_key"
	ConstraintConsultationSlot  = "consultations_active_slot_key"
	ConstraintPatientIdentifier = "patients_identification_number_key"
	ConstraintAccountUsername   = "accounts_username_key"
	ConstraintSpecialtyName     = "specialties_name_key"
	ConstraintDoctorAccount     = "doctors_account_id_key"
)

// ConstraintError is returned when a write violates a unique constraint.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("unique constraint %s violated", e.Constraint)
}

func (e *ConstraintError) Unwrap() error { return ErrDuplicate }

// IsConstraint reports whether err violates the named constraint.
func IsConstraint(err error, name string) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Constraint == name
}

// All repository interfaces in one file
type (
	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
		GetByUsername(ctx context.Context, username string) (*model.Account, error)
		Update(ctx context.Context, account *model.Account) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error)
		CountByRole(ctx context.Context) (map[model.Role]int, error)
		ListRecent(ctx context.Context, limit int) ([]*model.Account, error)
	}

	SpecialtyRepository interface {
		Create(ctx context.Context, specialty *model.Specialty) error
		Get(ctx context.Context, id uuid.UUID) (*model.Specialty, error)
		List(ctx context.Context) ([]*model.Specialty, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.Doctor, error)
		List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// AvailabilityRepository is the availability store: per doctor weekly windows.
	AvailabilityRepository interface {
		CreateBatch(ctx context.Context, windows []*model.AvailabilityWindow) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error)
		Delete(ctx context.Context, doctorID, windowID uuid.UUID) error
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByIdentification(ctx context.Context, number string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
		Count(ctx context.Context) (int, error)
	}

	ConsultationRepository interface {
		Create(ctx context.Context, c *model.Consultation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		// UpdateStatus persists status, clinical data and attended_at of a
		// consultation that is still waiting. ErrNotFound when none matches.
		UpdateStatus(ctx context.Context, c *model.Consultation) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error)
		// CountInGroup counts every consultation of the doctor, date and shift, any status.
		CountInGroup(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift) (int, error)
		MaxOrderInGroup(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift) (int, error)
		OrderTaken(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift, order int) (bool, error)
		// SlotTaken reports whether a non-cancelled consultation holds the slot.
		SlotTaken(ctx context.Context, doctorID uuid.UUID, date model.Date, t model.TimeOfDay, room string) (bool, error)
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, p *model.Prescription) error
		ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Prescription, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error)
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}
)

// Store groups the repositories behind one unit of work.
type Store interface {
	Accounts() AccountRepository
	Specialties() SpecialtyRepository
	Doctors() DoctorRepository
	Availability() AvailabilityRepository
	Patients() PatientRepository
	Consultations() ConsultationRepository
	Prescriptions() PrescriptionRepository
	Outbox() OutboxRepository
	Audit() AuditRepository

	// WithTx runs fn against a transactional Store. Any error rolls every write back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
