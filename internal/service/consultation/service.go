package consultation

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service"
	"github.com/jwalitptl/clinic-api/internal/service/audit"
	eventsvc "github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type ConsultationServicer interface {
	Transition(ctx context.Context, id uuid.UUID, req *model.TransitionRequest) (*model.Consultation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddPrescription(ctx context.Context, consultationID uuid.UUID, req *model.CreatePrescriptionRequest) (*model.Prescription, error)
	ListPrescriptions(ctx context.Context, consultationID uuid.UUID) ([]*model.Prescription, error)
}

type Service struct {
	store   repository.Store
	events  eventsvc.EventService
	auditor audit.Auditor
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store repository.Store, events eventsvc.EventService, auditor audit.Auditor, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		events:  events,
		auditor: auditor,
		metrics: m,
		now:     time.Now,
	}
}

var transitionEvents = map[model.ConsultationStatus]string{
	model.ConsultationStatusAttended:  event.ConsultationAttended,
	model.ConsultationStatusCancelled: event.ConsultationCancelled,
}

func actorFrom(ctx context.Context) (model.Actor, error) {
	actor, ok := model.ActorFromContext(ctx)
	if !ok {
		return model.Actor{}, errors.Unauthorized(stderrors.New("no authenticated account"))
	}
	return actor, nil
}

// canView: doctors see only consultations assigned to them.
func canView(actor model.Actor, c *model.Consultation) error {
	switch actor.Role {
	case model.RoleReception, model.RoleAdministrator:
		return nil
	case model.RoleDoctor:
		if actor.DoctorID != nil && c.DoctorID != nil && *actor.DoctorID == *c.DoctorID {
			return nil
		}
		return errors.Forbidden("consultation is not assigned to you")
	}
	return errors.Forbidden("your role cannot access consultations")
}

// canTransition: the assigned doctor may attend or cancel, reception and
// administrators may only cancel.
func canTransition(actor model.Actor, c *model.Consultation, to model.ConsultationStatus) error {
	if err := canView(actor, c); err != nil {
		return err
	}
	if actor.Role != model.RoleDoctor && to != model.ConsultationStatusCancelled {
		return errors.Forbidden("only the assigned doctor can attend a consultation")
	}
	return nil
}

// Transition applies the consultation state machine for the acting account.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, req *model.TransitionRequest) (*model.Consultation, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	var (
		consultation *model.Consultation
		from         model.ConsultationStatus
	)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		c, err := tx.Consultations().Get(ctx, id)
		if err != nil {
			return service.RepoError(err, "get", "consultation")
		}
		if err := canTransition(actor, c, req.Status); err != nil {
			return err
		}

		from = c.Status
		if err := Apply(c, req.Status, req.Clinical, s.now()); err != nil {
			return err
		}
		if err := tx.Consultations().UpdateStatus(ctx, c); err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				// changed by someone else since it was read
				return errors.NewConflict("consultation was modified concurrently, reload and try again", err)
			}
			return service.RepoError(err, "update", "consultation")
		}

		if eventType, ok := transitionEvents[c.Status]; ok {
			patient, err := tx.Patients().Get(ctx, c.PatientID)
			if err != nil {
				return service.RepoError(err, "get", "patient")
			}
			if err := s.events.Emit(ctx, tx.Outbox(), eventType, event.NewConsultation(c, patient, nil)); err != nil {
				return err
			}
		}
		consultation = c
		return nil
	})

	result := metrics.ResultAccepted
	if err != nil {
		result = metrics.ResultRejected
	}
	if from != "" {
		s.metrics.ObserveTransition(string(from), string(req.Status), result)
	}
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, model.AuditActionTransition, model.AuditEntityConsultation, id, &audit.LogOptions{
		Changes: map[string]string{"old": string(from), "new": string(consultation.Status)},
	})
	return consultation, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Consultations().Get(ctx, id)
	if err != nil {
		return nil, service.RepoError(err, "get", "consultation")
	}
	if err := canView(actor, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns consultations matching filters. A doctor only ever sees
// their own, whatever doctor filter was asked for.
func (s *Service) List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.ConsultationFilters{}
	}
	switch actor.Role {
	case model.RoleDoctor:
		if actor.DoctorID == nil {
			return nil, errors.Forbidden("account has no doctor profile")
		}
		filters.DoctorID = actor.DoctorID
	case model.RoleReception, model.RoleAdministrator:
	default:
		return nil, errors.Forbidden("your role cannot access consultations")
	}

	consultations, err := s.store.Consultations().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Consultations().Delete(ctx, id); err != nil {
		return service.RepoError(err, "delete", "consultation")
	}
	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityConsultation, id, nil)
	return nil
}

// AddPrescription records a prescription on one of the doctor's own
// consultations. Cancelled consultations take none.
func (s *Service) AddPrescription(ctx context.Context, consultationID uuid.UUID, req *model.CreatePrescriptionRequest) (*model.Prescription, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleDoctor {
		return nil, errors.Forbidden("only doctors can prescribe")
	}

	c, err := s.store.Consultations().Get(ctx, consultationID)
	if err != nil {
		return nil, service.RepoError(err, "get", "consultation")
	}
	if err := canView(actor, c); err != nil {
		return nil, err
	}
	if c.Status == model.ConsultationStatusCancelled {
		return nil, errors.NewValidation("consultation: cannot prescribe on a cancelled consultation")
	}

	prescription := &model.Prescription{
		ConsultationID: c.ID,
		DoctorID:       actor.DoctorID,
		Medication:     strings.TrimSpace(req.Medication),
		Description:    req.Description,
	}
	if err := s.store.Prescriptions().Create(ctx, prescription); err != nil {
		return nil, service.RepoError(err, "create", "prescription")
	}

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityPrescription, prescription.ID, &audit.LogOptions{
		Metadata: map[string]string{"consultation_id": c.ID.String()},
	})
	return prescription, nil
}

func (s *Service) ListPrescriptions(ctx context.Context, consultationID uuid.UUID) ([]*model.Prescription, error) {
	if _, err := s.Get(ctx, consultationID); err != nil {
		return nil, err
	}
	prescriptions, err := s.store.Prescriptions().ListByConsultation(ctx, consultationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}
