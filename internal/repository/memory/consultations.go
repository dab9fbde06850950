package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type consultationRepository struct {
	db conn
}

func sameDoctor(a *uuid.UUID, b uuid.UUID) bool {
	return a != nil && *a == b
}

func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	defer r.db.lock()()

	if _, ok := r.db.st.patients[c.PatientID]; !ok {
		return repository.ErrNotFound
	}
	if c.DoctorID != nil {
		for _, o := range r.db.st.consultations {
			if !sameDoctor(o.DoctorID, *c.DoctorID) || !o.Date.Equal(c.Date) {
				continue
			}
			if o.Shift == c.Shift && o.Order == c.Order {
				return duplicate(repository.ConstraintConsultationOrder)
			}
			if c.OccupiesSlot() && o.OccupiesSlot() && o.Time == c.Time && o.Room == c.Room {
				return duplicate(repository.ConstraintConsultationSlot)
			}
		}
	}
	stamp(&c.Base)
	r.db.st.consultations[c.ID] = *c
	return nil
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.st.consultations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *consultationRepository) UpdateStatus(ctx context.Context, c *model.Consultation) error {
	defer r.db.lock()()

	stored, ok := r.db.st.consultations[c.ID]
	if !ok || stored.Status != model.ConsultationStatusWaiting {
		return repository.ErrNotFound
	}
	stored.Status = c.Status
	stored.ClinicalData = c.ClinicalData
	stored.AttendedAt = c.AttendedAt
	stamp(&stored.Base)
	r.db.st.consultations[c.ID] = stored
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *consultationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.db.lock()()

	if _, ok := r.db.st.consultations[id]; !ok {
		return repository.ErrNotFound
	}
	r.db.st.deleteConsultation(id)
	return nil
}

func (s *state) deleteConsultation(id uuid.UUID) {
	delete(s.consultations, id)
	for pid, p := range s.prescriptions {
		if p.ConsultationID == id {
			delete(s.prescriptions, pid)
		}
	}
}

func (r *consultationRepository) List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.Consultation
	for _, c := range r.db.st.consultations {
		c := c
		if filters != nil {
			if filters.DoctorID != nil && !sameDoctor(c.DoctorID, *filters.DoctorID) {
				continue
			}
			if filters.PatientID != nil && c.PatientID != *filters.PatientID {
				continue
			}
			if filters.Date != nil && !c.Date.Equal(*filters.Date) {
				continue
			}
			if filters.Shift != "" && c.Shift != filters.Shift {
				continue
			}
			if filters.Status != "" && c.Status != filters.Status {
				continue
			}
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date.Time)
		}
		if a.Shift != b.Shift {
			return shiftRank(a.Shift) < shiftRank(b.Shift)
		}
		return a.Order < b.Order
	})
	return out, nil
}

func shiftRank(s model.Shift) int {
	switch s {
	case model.ShiftMorning:
		return 0
	case model.ShiftAfternoon:
		return 1
	}
	return 2
}

func (r *consultationRepository) inGroup(doctorID uuid.UUID, date model.Date, shift model.Shift, fn func(model.Consultation)) {
	for _, c := range r.db.st.consultations {
		if sameDoctor(c.DoctorID, doctorID) && c.Date.Equal(date) && c.Shift == shift {
			fn(c)
		}
	}
}

func (r *consultationRepository) CountInGroup(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	r.inGroup(doctorID, date, shift, func(model.Consultation) { n++ })
	return n, nil
}

func (r *consultationRepository) MaxOrderInGroup(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	max := 0
	r.inGroup(doctorID, date, shift, func(c model.Consultation) {
		if c.Order > max {
			max = c.Order
		}
	})
	return max, nil
}

func (r *consultationRepository) OrderTaken(ctx context.Context, doctorID uuid.UUID, date model.Date, shift model.Shift, order int) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	taken := false
	r.inGroup(doctorID, date, shift, func(c model.Consultation) {
		if c.Order == order {
			taken = true
		}
	})
	return taken, nil
}

func (r *consultationRepository) SlotTaken(ctx context.Context, doctorID uuid.UUID, date model.Date, t model.TimeOfDay, room string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, c := range r.db.st.consultations {
		if sameDoctor(c.DoctorID, doctorID) && c.Date.Equal(date) && c.Time == t && c.Room == room && c.OccupiesSlot() {
			return true, nil
		}
	}
	return false, nil
}

type prescriptionRepository struct {
	db conn
}

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	defer r.db.lock()()

	if _, ok := r.db.st.consultations[p.ConsultationID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&p.Base)
	r.db.st.prescriptions[p.ID] = *p
	return nil
}

func (r *prescriptionRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Prescription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.Prescription
	for _, p := range r.db.st.prescriptions {
		if p.ConsultationID == consultationID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
