package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type patientRepository struct {
	db conn
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	defer r.db.lock()()

	if r.identificationTaken(patient.IdentificationNumber, uuid.Nil) {
		return duplicate(repository.ConstraintPatientIdentifier)
	}
	stamp(&patient.Base)
	r.db.st.patients[patient.ID] = *patient
	return nil
}

func (r *patientRepository) identificationTaken(number string, except uuid.UUID) bool {
	for id, p := range r.db.st.patients {
		if id != except && p.IdentificationNumber == number {
			return true
		}
	}
	return false
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.st.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *patientRepository) GetByIdentification(ctx context.Context, number string) (*model.Patient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, p := range r.db.st.patients {
		if p.IdentificationNumber == number {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	defer r.db.lock()()

	if _, ok := r.db.st.patients[patient.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.identificationTaken(patient.IdentificationNumber, patient.ID) {
		return duplicate(repository.ConstraintPatientIdentifier)
	}
	stamp(&patient.Base)
	r.db.st.patients[patient.ID] = *patient
	return nil
}

// Delete cascades to the patient's consultations and their prescriptions.
func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.db.lock()()

	if _, ok := r.db.st.patients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.st.patients, id)
	for cid, c := range r.db.st.consultations {
		if c.PatientID == id {
			r.db.st.deleteConsultation(cid)
		}
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.Patient
	for _, p := range r.db.st.patients {
		p := p
		if filters != nil {
			if filters.AssignedDoctorID != nil && (p.AssignedDoctorID == nil || *p.AssignedDoctorID != *filters.AssignedDoctorID) {
				continue
			}
			if filters.Search != "" && !containsFold(filters.Search, p.FirstName, p.LastName, p.IdentificationNumber) {
				continue
			}
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})

	if filters != nil {
		offset, limit := filters.Offset(), filters.Limit()
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
		if len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}

func (r *patientRepository) Count(ctx context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.st.patients), nil
}
