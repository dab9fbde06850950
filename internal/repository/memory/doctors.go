package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type specialtyRepository struct {
	db conn
}

func (r *specialtyRepository) Create(ctx context.Context, specialty *model.Specialty) error {
	defer r.db.lock()()

	for _, s := range r.db.st.specialties {
		if strings.EqualFold(s.Name, specialty.Name) {
			return duplicate(repository.ConstraintSpecialtyName)
		}
	}
	stamp(&specialty.Base)
	r.db.st.specialties[specialty.ID] = *specialty
	return nil
}

func (r *specialtyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Specialty, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.st.specialties[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *specialtyRepository) List(ctx context.Context) ([]*model.Specialty, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Specialty, 0, len(r.db.st.specialties))
	for _, s := range r.db.st.specialties {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *specialtyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.db.lock()()

	if _, ok := r.db.st.specialties[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.st.specialties, id)
	for doctorID, d := range r.db.st.doctors {
		if d.SpecialtyID != nil && *d.SpecialtyID == id {
			d.SpecialtyID = nil
			r.db.st.doctors[doctorID] = d
		}
	}
	return nil
}

type doctorRepository struct {
	db conn
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	defer r.db.lock()()

	if _, ok := r.db.st.accounts[doctor.AccountID]; !ok {
		return repository.ErrNotFound
	}
	for _, d := range r.db.st.doctors {
		if d.AccountID == doctor.AccountID {
			return duplicate(repository.ConstraintDoctorAccount)
		}
	}
	stamp(&doctor.Base)
	stored := *doctor
	stored.Windows = nil
	r.db.st.doctors[doctor.ID] = stored
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	d, ok := r.db.st.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.db.st.joinDoctor(d), nil
}

func (r *doctorRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*model.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, d := range r.db.st.doctors {
		if d.AccountID == accountID {
			return r.db.st.joinDoctor(d), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *doctorRepository) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.Doctor
	for _, d := range r.db.st.doctors {
		doc := r.db.st.joinDoctor(d)
		if filters != nil {
			if filters.SpecialtyID != nil && (doc.SpecialtyID == nil || *doc.SpecialtyID != *filters.SpecialtyID) {
				continue
			}
			if filters.Search != "" && !containsFold(filters.Search, doc.FirstName, doc.LastName) {
				continue
			}
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.db.lock()()

	if _, ok := r.db.st.doctors[id]; !ok {
		return repository.ErrNotFound
	}
	r.db.st.deleteDoctor(id)
	return nil
}

func (s *state) joinDoctor(d model.Doctor) *model.Doctor {
	if a, ok := s.accounts[d.AccountID]; ok {
		d.FirstName = a.FirstName
		d.LastName = a.LastName
	}
	d.SpecialtyName = ""
	if d.SpecialtyID != nil {
		if sp, ok := s.specialties[*d.SpecialtyID]; ok {
			d.SpecialtyName = sp.Name
		}
	}
	return &d
}

// deleteDoctor mirrors the schema: windows cascade, other references are set null.
func (s *state) deleteDoctor(id uuid.UUID) {
	delete(s.doctors, id)
	for wid, w := range s.windows {
		if w.DoctorID == id {
			delete(s.windows, wid)
		}
	}
	for cid, c := range s.consultations {
		if c.DoctorID != nil && *c.DoctorID == id {
			c.DoctorID = nil
			s.consultations[cid] = c
		}
	}
	for pid, p := range s.patients {
		if p.AssignedDoctorID != nil && *p.AssignedDoctorID == id {
			p.AssignedDoctorID = nil
			s.patients[pid] = p
		}
	}
	for pid, p := range s.prescriptions {
		if p.DoctorID != nil && *p.DoctorID == id {
			p.DoctorID = nil
			s.prescriptions[pid] = p
		}
	}
}

type availabilityRepository struct {
	db conn
}

func (r *availabilityRepository) CreateBatch(ctx context.Context, windows []*model.AvailabilityWindow) error {
	defer r.db.lock()()

	for _, w := range windows {
		if _, ok := r.db.st.doctors[w.DoctorID]; !ok {
			return repository.ErrNotFound
		}
	}
	for _, w := range windows {
		stamp(&w.Base)
		r.db.st.windows[w.ID] = *w
	}
	return nil
}

func (r *availabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.AvailabilityWindow
	for _, w := range r.db.st.windows {
		if w.DoctorID == doctorID {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *availabilityRepository) Delete(ctx context.Context, doctorID, windowID uuid.UUID) error {
	defer r.db.lock()()

	w, ok := r.db.st.windows[windowID]
	if !ok || w.DoctorID != doctorID {
		return repository.ErrNotFound
	}
	delete(r.db.st.windows, windowID)
	return nil
}
