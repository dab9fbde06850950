package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/internal/service/audit"
	eventsvc "github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	DefaultSlotDuration = 30 * time.Minute
	DefaultCacheTTL     = 5 * time.Minute
)

type ScheduleServicer interface {
	CreateDoctor(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	ListDoctors(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error
	AddWindows(ctx context.Context, doctorID uuid.UUID, req *model.AddWindowsRequest) ([]*model.AvailabilityWindow, error)
	ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, doctorID, windowID uuid.UUID) error
	DaySlots(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DaySlots, error)
}

type Config struct {
	SlotDuration time.Duration
	CacheTTL     time.Duration
}

type Service struct {
	store   repository.Store
	hasher  security.PasswordHasher
	events  eventsvc.EventService
	auditor audit.Auditor
	metrics *metrics.Metrics
	logger  *logger.Logger
	cache   *windowCache
	config  Config
}

func NewService(
	store repository.Store,
	hasher security.PasswordHasher,
	events eventsvc.EventService,
	auditor audit.Auditor,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg Config,
) *Service {
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = DefaultSlotDuration
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:   store,
		hasher:  hasher,
		events:  events,
		auditor: auditor,
		metrics: m,
		logger:  log,
		cache:   newWindowCache(cfg.CacheTTL),
		config:  cfg,
	}
}

// SlotDuration is the length of one bookable slot.
func (s *Service) SlotDuration() time.Duration {
	return s.config.SlotDuration
}

func (s *Service) validate(doctorID uuid.UUID, inputs []model.WindowInput) ([]*model.AvailabilityWindow, error) {
	windows, err := ValidateWindows(inputs)
	if err != nil {
		s.metrics.ObserveScheduleValidation(metrics.ResultRejected)
		s.logger.Warn("Availability windows rejected", "doctor_id", doctorID.String(), "error", err.Error())
		return nil, err
	}
	s.metrics.ObserveScheduleValidation(metrics.ResultAccepted)
	return windows, nil
}

// CreateDoctor creates the doctor's account, profile and windows in one
// transaction. A rejected window batch persists nothing.
func (s *Service) CreateDoctor(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	windows, err := s.validate(uuid.Nil, req.Windows)
	if err != nil {
		return nil, err
	}

	acct, err := account.NewAccount(s.hasher, &req.Account, model.RoleDoctor)
	if err != nil {
		return nil, err
	}

	doctor := &model.Doctor{
		SpecialtyID: req.SpecialtyID,
		Bio:         req.Bio,
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Accounts().Create(ctx, acct); err != nil {
			return account.UsernameError(err, acct.Username)
		}

		if doctor.SpecialtyID != nil {
			specialty, err := tx.Specialties().Get(ctx, *doctor.SpecialtyID)
			if err != nil {
				return service.RepoError(err, "get", "specialty")
			}
			doctor.SpecialtyName = specialty.Name
		}

		doctor.AccountID = acct.ID
		if err := tx.Doctors().Create(ctx, doctor); err != nil {
			return service.RepoError(err, "create", "doctor")
		}

		if err := s.persistWindows(ctx, tx, doctor.ID, windows); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx.Outbox(), event.DoctorCreated, event.Doctor{
			DoctorID:  doctor.ID,
			AccountID: acct.ID,
			WindowIDs: windowIDs(windows),
		})
	})
	if err != nil {
		return nil, err
	}

	doctor.FirstName = acct.FirstName
	doctor.LastName = acct.LastName
	doctor.Windows = windows
	s.cache.replace(doctor.ID, windows)

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityDoctor, doctor.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"username": acct.Username, "windows": len(windows)},
	})
	return doctor, nil
}

func (s *Service) persistWindows(ctx context.Context, tx repository.Store, doctorID uuid.UUID, windows []*model.AvailabilityWindow) error {
	if len(windows) == 0 {
		return nil
	}
	for _, w := range windows {
		w.DoctorID = doctorID
	}
	if err := tx.Availability().CreateBatch(ctx, windows); err != nil {
		return service.RepoError(err, "create", "availability windows")
	}
	return nil
}

// AddWindows validates the batch on its own and appends it to the doctor's
// schedule. Windows already stored are not compared against the batch.
func (s *Service) AddWindows(ctx context.Context, doctorID uuid.UUID, req *model.AddWindowsRequest) ([]*model.AvailabilityWindow, error) {
	windows, err := s.validate(doctorID, req.Windows)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Doctors().Get(ctx, doctorID); err != nil {
			return service.RepoError(err, "get", "doctor")
		}
		if err := s.persistWindows(ctx, tx, doctorID, windows); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx.Outbox(), event.WindowsAdded, event.Doctor{
			DoctorID:  doctorID,
			WindowIDs: windowIDs(windows),
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(doctorID)
	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityWindow, doctorID, &audit.LogOptions{
		Metadata: map[string]interface{}{"window_ids": windowIDs(windows)},
	})
	return windows, nil
}

// ListWindows returns the doctor's windows ordered by day and start time.
func (s *Service) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	if cached, ok := s.cache.get(doctorID); ok {
		return cached, nil
	}

	gen := s.cache.generation(doctorID)
	if _, err := s.store.Doctors().Get(ctx, doctorID); err != nil {
		return nil, service.RepoError(err, "get", "doctor")
	}
	windows, err := s.store.Availability().ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}

	windows = cloneWindows(windows)
	s.cache.fill(doctorID, gen, windows)
	return windows, nil
}

func (s *Service) DeleteWindow(ctx context.Context, doctorID, windowID uuid.UUID) error {
	if err := s.store.Availability().Delete(ctx, doctorID, windowID); err != nil {
		return service.RepoError(err, "delete", "availability window")
	}
	s.cache.invalidate(doctorID)
	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityWindow, windowID, &audit.LogOptions{
		Metadata: map[string]string{"doctor_id": doctorID.String()},
	})
	return nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.store.Doctors().Get(ctx, id)
	if err != nil {
		return nil, service.RepoError(err, "get", "doctor")
	}
	windows, err := s.ListWindows(ctx, id)
	if err != nil {
		return nil, err
	}
	doctor.Windows = windows
	return doctor, nil
}

func (s *Service) ListDoctors(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	doctors, err := s.store.Doctors().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

// DeleteDoctor removes the doctor together with the owning account. Windows
// go with it; consultations and patients keep a cleared doctor reference.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	doctor, err := s.store.Doctors().Get(ctx, id)
	if err != nil {
		return service.RepoError(err, "get", "doctor")
	}
	if err := s.store.Accounts().Delete(ctx, doctor.AccountID); err != nil {
		return service.RepoError(err, "delete", "doctor")
	}

	s.cache.invalidate(id)
	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityDoctor, id, &audit.LogOptions{
		Metadata: map[string]string{"account_id": doctor.AccountID.String()},
	})
	return nil
}

// DaySlots lists the doctor's slots on date with their occupancy. A doctor
// without a window on that weekday yields Attends=false and no slots.
// Cancelled consultations do not occupy their slot, so it can be booked again.
func (s *Service) DaySlots(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DaySlots, error) {
	windows, err := s.ListWindows(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	consultations, err := s.store.Consultations().List(ctx, &model.ConsultationFilters{
		DoctorID: &doctorID,
		Date:     &date,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}

	occupied := make(map[SlotKey]bool, len(consultations))
	for _, c := range consultations {
		if c.OccupiesSlot() {
			occupied[SlotKey{Time: c.Time, Room: model.NormalizeRoom(c.Room)}] = true
		}
	}

	slots := GenerateSlots(windows, date, s.config.SlotDuration, occupied)
	slots.DoctorID = doctorID
	s.metrics.ObserveSlotQuery(slots.Attends)
	return &slots, nil
}

func windowIDs(windows []*model.AvailabilityWindow) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(windows))
	for _, w := range windows {
		ids = append(ids, w.ID)
	}
	return ids
}

func cloneWindows(windows []*model.AvailabilityWindow) []*model.AvailabilityWindow {
	out := make([]*model.AvailabilityWindow, len(windows))
	for i, w := range windows {
		c := *w
		out[i] = &c
	}
	return out
}
