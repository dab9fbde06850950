// Package memory is an in-process Store used by tests and the "memory" database driver.
// It enforces the same unique constraints and cascades as the postgres schema.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type state struct {
	accounts      map[uuid.UUID]model.Account
	specialties   map[uuid.UUID]model.Specialty
	doctors       map[uuid.UUID]model.Doctor
	windows       map[uuid.UUID]model.AvailabilityWindow
	patients      map[uuid.UUID]model.Patient
	consultations map[uuid.UUID]model.Consultation
	prescriptions map[uuid.UUID]model.Prescription
	outbox        map[uuid.UUID]model.OutboxEvent
	audit         []model.AuditLog
}

func newState() *state {
	return &state{
		accounts:      map[uuid.UUID]model.Account{},
		specialties:   map[uuid.UUID]model.Specialty{},
		doctors:       map[uuid.UUID]model.Doctor{},
		windows:       map[uuid.UUID]model.AvailabilityWindow{},
		patients:      map[uuid.UUID]model.Patient{},
		consultations: map[uuid.UUID]model.Consultation{},
		prescriptions: map[uuid.UUID]model.Prescription{},
		outbox:        map[uuid.UUID]model.OutboxEvent{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		accounts:      cloneMap(s.accounts),
		specialties:   cloneMap(s.specialties),
		doctors:       cloneMap(s.doctors),
		windows:       cloneMap(s.windows),
		patients:      cloneMap(s.patients),
		consultations: cloneMap(s.consultations),
		prescriptions: cloneMap(s.prescriptions),
		outbox:        cloneMap(s.outbox),
		audit:         append([]model.AuditLog(nil), s.audit...),
	}
}

type db struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
}

// conn is the handle a repository writes through. Writes outside a
// transaction wait on txMu so a rollback never discards them.
type conn struct {
	*db
	inTx bool
}

func (c conn) lock() (unlock func()) {
	if !c.inTx {
		c.txMu.Lock()
	}
	c.mu.Lock()
	return func() {
		c.mu.Unlock()
		if !c.inTx {
			c.txMu.Unlock()
		}
	}
}

// Store implements repository.Store in memory. Transactions are serialised
// and roll back by restoring a snapshot taken when they began. Writes made
// outside a transaction block until any open one finishes.
type Store struct {
	db   *db
	inTx bool
}

func NewStore() *Store {
	return &Store{db: &db{st: newState()}}
}

func (s *Store) Accounts() repository.AccountRepository {
	return &accountRepository{db: s.conn()}
}

func (s *Store) Specialties() repository.SpecialtyRepository {
	return &specialtyRepository{db: s.conn()}
}

func (s *Store) Doctors() repository.DoctorRepository {
	return &doctorRepository{db: s.conn()}
}

func (s *Store) Availability() repository.AvailabilityRepository {
	return &availabilityRepository{db: s.conn()}
}

func (s *Store) Patients() repository.PatientRepository {
	return &patientRepository{db: s.conn()}
}

func (s *Store) Consultations() repository.ConsultationRepository {
	return &consultationRepository{db: s.conn()}
}

func (s *Store) Prescriptions() repository.PrescriptionRepository {
	return &prescriptionRepository{db: s.conn()}
}

func (s *Store) Outbox() repository.OutboxRepository {
	return &outboxRepository{db: s.conn()}
}

func (s *Store) Audit() repository.AuditRepository {
	return &auditRepository{db: s.conn()}
}

func (s *Store) conn() conn { return conn{db: s.db, inTx: s.inTx} }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	snapshot := s.db.st.clone()
	s.db.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
	}()

	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *Store) restore(snapshot *state) {
	s.db.mu.Lock()
	s.db.st = snapshot
	s.db.mu.Unlock()
}

func stamp(b *model.Base) {
	now := time.Now().UTC()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func duplicate(constraint string) error {
	return &repository.ConstraintError{Constraint: constraint}
}
