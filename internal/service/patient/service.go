package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service"
	"github.com/jwalitptl/clinic-api/internal/service/audit"
	eventsvc "github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/event"
)

// Fields whose values are kept out of the audit trail. Only the fact that
// they changed is recorded.
var sensitiveFields = map[string]bool{
	"allergies":     true,
	"medical_notes": true,
	"blood_type":    true,
}

type PatientService interface {
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByIdentification(ctx context.Context, number string) (*model.Patient, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error
	ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
}

type Service struct {
	store   repository.Store
	events  eventsvc.EventService
	auditor audit.Auditor
}

func NewService(store repository.Store, events eventsvc.EventService, auditor audit.Auditor) *Service {
	return &Service{
		store:   store,
		events:  events,
		auditor: auditor,
	}
}

func identificationError(err error, number string) error {
	if repository.IsConstraint(err, repository.ConstraintPatientIdentifier) {
		return errors.NewConflict(fmt.Sprintf("a patient with identification %s already exists", number), err)
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		FirstName:            strings.TrimSpace(req.FirstName),
		LastName:             strings.TrimSpace(req.LastName),
		Email:                req.Email,
		Phone:                strings.TrimSpace(req.Phone),
		IdentificationType:   req.IdentificationType,
		IdentificationNumber: strings.TrimSpace(req.IdentificationNumber),
		Gender:               req.Gender,
		DateOfBirth:          req.DateOfBirth,
		AddressLine:          req.AddressLine,
		City:                 req.City,
		Region:               req.Region,
		PostalCode:           req.PostalCode,
		Country:              strings.TrimSpace(req.Country),
		BloodType:            req.BloodType,
		Allergies:            req.Allergies,
		MedicalNotes:         req.MedicalNotes,
		EmergencyName:        req.EmergencyName,
		EmergencyRelation:    req.EmergencyRelation,
		EmergencyPhone:       req.EmergencyPhone,
		IsActive:             true,
		AssignedDoctorID:     req.AssignedDoctorID,
	}
	if patient.Country == "" {
		patient.Country = model.DefaultCountry
	}
	if patient.IdentificationType == "" {
		patient.IdentificationType = model.IdentificationCI
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if patient.AssignedDoctorID != nil {
			if _, err := tx.Doctors().Get(ctx, *patient.AssignedDoctorID); err != nil {
				return service.RepoError(err, "get", "doctor")
			}
		}
		if err := tx.Patients().Create(ctx, patient); err != nil {
			if cerr := identificationError(err, patient.IdentificationNumber); cerr != nil {
				return cerr
			}
			return service.RepoError(err, "create", "patient")
		}
		return s.events.Emit(ctx, tx.Outbox(), event.PatientCreated, event.Patient{
			PatientID:            patient.ID,
			IdentificationNumber: patient.IdentificationNumber,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityPatient, patient.ID, nil)
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.store.Patients().Get(ctx, id)
	if err != nil {
		return nil, service.RepoError(err, "get", "patient")
	}
	return patient, nil
}

// GetByIdentification finds the patient reception books for.
func (s *Service) GetByIdentification(ctx context.Context, number string) (*model.Patient, error) {
	patient, err := s.store.Patients().GetByIdentification(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, service.RepoError(err, "get", "patient")
	}
	return patient, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.store.Patients().Get(ctx, id)
	if err != nil {
		return nil, service.RepoError(err, "get", "patient")
	}
	before := *patient

	setString(&patient.FirstName, req.FirstName)
	setString(&patient.LastName, req.LastName)
	setString(&patient.Phone, req.Phone)
	setString(&patient.AddressLine, req.AddressLine)
	setString(&patient.City, req.City)
	setString(&patient.Region, req.Region)
	setString(&patient.PostalCode, req.PostalCode)
	setString(&patient.Country, req.Country)
	setString(&patient.BloodType, req.BloodType)
	setString(&patient.Allergies, req.Allergies)
	setString(&patient.MedicalNotes, req.MedicalNotes)
	setString(&patient.EmergencyPhone, req.EmergencyPhone)
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		patient.Email = &email
	}
	if req.IsActive != nil {
		patient.IsActive = *req.IsActive
	}
	if req.AssignedDoctorID != nil {
		if _, err := s.store.Doctors().Get(ctx, *req.AssignedDoctorID); err != nil {
			return nil, service.RepoError(err, "get", "doctor")
		}
		patient.AssignedDoctorID = req.AssignedDoctorID
	}

	if err := s.store.Patients().Update(ctx, patient); err != nil {
		return nil, service.RepoError(err, "update", "patient")
	}

	changes := event.Diff(&before, patient)
	for field := range changes {
		if sensitiveFields[field] {
			changes[field] = event.Change{Old: "redacted", New: "redacted"}
		}
	}
	if len(changes) > 0 {
		s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityPatient, id, &audit.LogOptions{Changes: changes})
	}
	return patient, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// DeletePatient removes the patient together with their consultations.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Patients().Delete(ctx, id); err != nil {
		return service.RepoError(err, "delete", "patient")
	}
	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityPatient, id, nil)
	return nil
}

func (s *Service) ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	patients, err := s.store.Patients().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
