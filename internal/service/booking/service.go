package booking

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
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const (
	DefaultAttempts = 3

	NotAvailableMessage = "doctor not available at this time"
	SlotTakenMessage    = "slot already booked"
)

// errOrderRace marks a lost race on the queue order constraint. The whole
// booking is retried.
var errOrderRace = stderrors.New("queue order taken concurrently")

type BookingServicer interface {
	Book(ctx context.Context, req *model.BookingRequest) (*model.Consultation, error)
}

type Service struct {
	store    repository.Store
	events   eventsvc.EventService
	auditor  audit.Auditor
	metrics  *metrics.Metrics
	logger   *logger.Logger
	attempts int
}

func NewService(store repository.Store, events eventsvc.EventService, auditor audit.Auditor, m *metrics.Metrics, log *logger.Logger, attempts int) *Service {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		events:   events,
		auditor:  auditor,
		metrics:  m,
		logger:   log,
		attempts: attempts,
	}
}

// booking is a request after parsing, ready to be placed.
type booking struct {
	doctorID    uuid.UUID
	date        model.Date
	time        model.TimeOfDay
	shift       model.Shift
	priority    model.Priority
	description string
}

func parseRequest(req *model.BookingRequest) (*booking, error) {
	var details []string

	date, err := model.ParseDate(req.Date)
	if err != nil {
		details = append(details, fmt.Sprintf("date: %v", err))
	}
	at, err := model.ParseTimeOfDay(req.Time)
	if err != nil {
		details = append(details, fmt.Sprintf("time: %v", err))
	}
	if req.DoctorID == uuid.Nil {
		details = append(details, "doctor_id: is required")
	}
	if req.PatientID == nil && strings.TrimSpace(req.PatientIdentification) == "" {
		details = append(details, "patient: patient_id or patient_identification is required")
	}
	if req.Shift != "" && !req.Shift.Valid() {
		details = append(details, fmt.Sprintf("shift: unknown shift %q", req.Shift))
	}
	if req.Priority != "" && !req.Priority.Valid() {
		details = append(details, fmt.Sprintf("priority: unknown priority %q", req.Priority))
	}
	if len(details) > 0 {
		return nil, errors.NewValidation(details...)
	}

	b := &booking{
		doctorID:    req.DoctorID,
		date:        date,
		time:        at,
		shift:       req.Shift,
		priority:    req.Priority,
		description: strings.TrimSpace(req.Description),
	}
	if b.shift == "" {
		b.shift = model.ShiftFor(at)
	}
	if b.priority == "" {
		b.priority = model.DefaultPriority
	}
	return b, nil
}

// Book places a consultation in the doctor's window covering the requested
// weekday and time. The consultation takes the window's room and the next
// queue order for its (doctor, date, shift) group, and starts out waiting.
func (s *Service) Book(ctx context.Context, req *model.BookingRequest) (*model.Consultation, error) {
	started := time.Now()

	b, err := parseRequest(req)
	if err != nil {
		s.metrics.ObserveBooking(metrics.ResultValidation, started)
		return nil, err
	}

	patient, err := s.resolvePatient(ctx, req)
	if err != nil {
		s.metrics.ObserveBooking(resultOf(err), started)
		return nil, err
	}

	var consultation *model.Consultation
	for attempt := 1; ; attempt++ {
		consultation, err = s.place(ctx, b, patient)
		if !stderrors.Is(err, errOrderRace) || attempt >= s.attempts {
			break
		}
		s.metrics.IncBookingRetry()
		s.logger.Debug("Retrying booking after queue order race",
			"doctor_id", b.doctorID.String(), "date", b.date.String(), "attempt", attempt)
	}
	if stderrors.Is(err, errOrderRace) {
		err = errors.NewSchedulingConflict("could not assign a queue order, try again")
	}
	if err != nil {
		s.metrics.ObserveBooking(resultOf(err), started)
		if errors.HasCode(err, errors.ErrSchedulingConflict) {
			s.logger.Warn("Booking rejected",
				"doctor_id", b.doctorID.String(),
				"date", b.date.String(),
				"time", b.time.String(),
				"reason", err.Error())
		}
		return nil, err
	}

	s.metrics.ObserveBooking(metrics.ResultBooked, started)
	s.auditor.Record(ctx, model.AuditActionBook, model.AuditEntityConsultation, consultation.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"doctor_id": b.doctorID,
			"date":      b.date.String(),
			"time":      b.time.String(),
			"order":     consultation.Order,
		},
	})
	return consultation, nil
}

func (s *Service) resolvePatient(ctx context.Context, req *model.BookingRequest) (*model.Patient, error) {
	var (
		patient *model.Patient
		err     error
	)
	if req.PatientID != nil {
		patient, err = s.store.Patients().Get(ctx, *req.PatientID)
	} else {
		patient, err = s.store.Patients().GetByIdentification(ctx, strings.TrimSpace(req.PatientIdentification))
	}
	if err != nil {
		return nil, service.RepoError(err, "get", "patient")
	}
	return patient, nil
}

func (s *Service) place(ctx context.Context, b *booking, patient *model.Patient) (*model.Consultation, error) {
	var consultation *model.Consultation

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		doctor, err := tx.Doctors().Get(ctx, b.doctorID)
		if err != nil {
			return service.RepoError(err, "get", "doctor")
		}

		windows, err := tx.Availability().ListByDoctor(ctx, b.doctorID)
		if err != nil {
			return fmt.Errorf("failed to list availability windows: %w", err)
		}
		window := FindWindow(windows, b.date.Weekday(), b.time)
		if window == nil {
			return errors.NewSchedulingConflict(NotAvailableMessage)
		}
		room := model.NormalizeRoom(window.Room)

		taken, err := tx.Consultations().SlotTaken(ctx, b.doctorID, b.date, b.time, room)
		if err != nil {
			return fmt.Errorf("failed to check slot: %w", err)
		}
		if taken {
			return slotConflict(b, room)
		}

		order, err := nextOrder(ctx, tx.Consultations(), b)
		if err != nil {
			return err
		}

		doctorID := b.doctorID
		c := &model.Consultation{
			PatientID:   patient.ID,
			DoctorID:    &doctorID,
			Date:        b.date,
			Time:        b.time,
			Shift:       b.shift,
			Order:       order,
			Priority:    b.priority,
			Room:        room,
			Status:      model.ConsultationStatusWaiting,
			Description: b.description,
		}
		if err := tx.Consultations().Create(ctx, c); err != nil {
			switch {
			case repository.IsConstraint(err, repository.ConstraintConsultationOrder):
				return errOrderRace
			case repository.IsConstraint(err, repository.ConstraintConsultationSlot):
				return slotConflict(b, room)
			}
			return service.RepoError(err, "create", "consultation")
		}

		if err := s.events.Emit(ctx, tx.Outbox(), event.ConsultationBooked, event.NewConsultation(c, patient, doctor)); err != nil {
			return err
		}
		consultation = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consultation, nil
}

// FindWindow returns the first window on day whose [start, end] covers t.
func FindWindow(windows []*model.AvailabilityWindow, day model.Weekday, t model.TimeOfDay) *model.AvailabilityWindow {
	for _, w := range windows {
		if w.Day == day && w.Covers(t) {
			return w
		}
	}
	return nil
}

// nextOrder is one more than the number of consultations already in the
// group. When a deletion left that number in use, the order after the
// current maximum is taken instead.
func nextOrder(ctx context.Context, repo repository.ConsultationRepository, b *booking) (int, error) {
	count, err := repo.CountInGroup(ctx, b.doctorID, b.date, b.shift)
	if err != nil {
		return 0, fmt.Errorf("failed to count consultations: %w", err)
	}
	order := count + 1

	taken, err := repo.OrderTaken(ctx, b.doctorID, b.date, b.shift, order)
	if err != nil {
		return 0, fmt.Errorf("failed to check queue order: %w", err)
	}
	if !taken {
		return order, nil
	}

	maxOrder, err := repo.MaxOrderInGroup(ctx, b.doctorID, b.date, b.shift)
	if err != nil {
		return 0, fmt.Errorf("failed to get queue order: %w", err)
	}
	return maxOrder + 1, nil
}

func slotConflict(b *booking, room string) error {
	return errors.NewSchedulingConflict(SlotTakenMessage,
		fmt.Sprintf("room %s at %s on %s is taken", room, b.time, b.date))
}

func resultOf(err error) string {
	appErr, ok := errors.As(err)
	if !ok {
		return metrics.ResultError
	}
	switch appErr.Code {
	case errors.ErrSchedulingConflict:
		return metrics.ResultConflict
	case errors.ErrValidation:
		return metrics.ResultValidation
	case errors.ErrNotFound:
		return metrics.ResultNotFound
	}
	return metrics.ResultError
}
