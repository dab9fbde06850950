package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Store is the postgres unit of work. Outside a transaction q is the pool,
// inside it is the *sqlx.Tx, so every repository joins the caller's transaction.
type Store struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

// GetDB returns the database instance
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

func (s *Store) Accounts() repository.AccountRepository {
	return NewAccountRepository(s.q)
}

func (s *Store) Specialties() repository.SpecialtyRepository {
	return NewSpecialtyRepository(s.q)
}

func (s *Store) Doctors() repository.DoctorRepository {
	return NewDoctorRepository(s.q)
}

func (s *Store) Availability() repository.AvailabilityRepository {
	return NewAvailabilityRepository(s.q)
}

func (s *Store) Patients() repository.PatientRepository {
	return NewPatientRepository(s.q)
}

func (s *Store) Consultations() repository.ConsultationRepository {
	return NewConsultationRepository(s.q)
}

func (s *Store) Prescriptions() repository.PrescriptionRepository {
	return NewPrescriptionRepository(s.q)
}

func (s *Store) Outbox() repository.OutboxRepository {
	return NewOutboxRepository(s.q)
}

func (s *Store) Audit() repository.AuditRepository {
	return NewAuditRepository(s.q)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes a function within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if _, inTx := s.q.(*sqlx.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
