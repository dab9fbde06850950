package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/audit"
	eventsvc "github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const monday = "2024-01-01"

type fixture struct {
	store   repository.Store
	mem     *memory.Store
	svc     *Service
	metrics *metrics.Metrics
	doctor  *model.Doctor
	patient *model.Patient
}

func newFixture(t *testing.T, wrap func(*memory.Store) repository.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := memory.NewStore()

	account := &model.Account{Username: "drhouse", FirstName: "Gregory", LastName: "House", Role: model.RoleDoctor, IsActive: true}
	require.NoError(t, mem.Accounts().Create(ctx, account))
	doctor := &model.Doctor{AccountID: account.ID}
	require.NoError(t, mem.Doctors().Create(ctx, doctor))
	require.NoError(t, mem.Availability().CreateBatch(ctx, []*model.AvailabilityWindow{{
		DoctorID:  doctor.ID,
		Day:       model.Monday,
		StartTime: model.NewTimeOfDay(8, 0),
		EndTime:   model.NewTimeOfDay(12, 0),
		Room:      "A101",
	}}))

	email := "ana@example.com"
	patient := &model.Patient{FirstName: "Ana", LastName: "Benitez", Email: &email, IdentificationNumber: "4567890"}
	require.NoError(t, mem.Patients().Create(ctx, patient))

	var store repository.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")
	auditor := audit.NewAuditLogger(audit.NewService(mem.Audit()), nil, false)

	return &fixture{
		store:   store,
		mem:     mem,
		svc:     NewService(store, eventsvc.NewService(), auditor, m, nil, 3),
		metrics: m,
		doctor:  doctor,
		patient: patient,
	}
}

func (f *fixture) request(at string) *model.BookingRequest {
	return &model.BookingRequest{
		DoctorID:  f.doctor.ID,
		PatientID: &f.patient.ID,
		Date:      monday,
		Time:      at,
	}
}

func TestBook_MorningWindow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, f.request("09:00"))
	require.NoError(t, err)
	assert.Equal(t, "a101", first.Room)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, model.ConsultationStatusWaiting, first.Status)
	assert.Equal(t, model.ShiftMorning, first.Shift)
	assert.Equal(t, model.PriorityLevelIV, first.Priority)

	second, err := f.svc.Book(ctx, f.request("09:30"))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Order)

	_, err = f.svc.Book(ctx, f.request("13:00"))
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrSchedulingConflict, appErr.Code)
	assert.Equal(t, NotAvailableMessage, appErr.Message)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Bookings.WithLabelValues(metrics.ResultBooked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Bookings.WithLabelValues(metrics.ResultConflict)))
}

func TestBook_WindowBoundsAreInclusive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.request("08:00"))
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, f.request("12:00"))
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, f.request("12:01"))
	assert.True(t, errors.HasCode(err, errors.ErrSchedulingConflict))
	_, err = f.svc.Book(ctx, f.request("07:59"))
	assert.True(t, errors.HasCode(err, errors.ErrSchedulingConflict))
}

func TestBook_OtherWeekday(t *testing.T) {
	f := newFixture(t, nil)

	req := f.request("09:00")
	req.Date = "2024-01-02"
	_, err := f.svc.Book(context.Background(), req)
	assert.True(t, errors.HasCode(err, errors.ErrSchedulingConflict))
}

func TestBook_SlotTaken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, f.request("09:00"))
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, f.request("09:00"))
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrSchedulingConflict, appErr.Code)
	assert.Equal(t, SlotTakenMessage, appErr.Message)

	first.Status = model.ConsultationStatusCancelled
	require.NoError(t, f.mem.Consultations().UpdateStatus(ctx, first))

	again, err := f.svc.Book(ctx, f.request("09:00"))
	require.NoError(t, err)
	assert.Equal(t, 2, again.Order, "cancelled consultations keep their place in the count")
}

func TestBook_OrderAfterDeletion(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, f.request("08:00"))
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, f.request("08:30"))
	require.NoError(t, err)
	require.NoError(t, f.mem.Consultations().Delete(ctx, first.ID))

	third, err := f.svc.Book(ctx, f.request("09:00"))
	require.NoError(t, err)
	assert.Equal(t, 3, third.Order)
}

func TestBook_ByIdentification(t *testing.T) {
	f := newFixture(t, nil)

	req := f.request("10:00")
	req.PatientID = nil
	req.PatientIdentification = "4567890"
	req.Priority = model.PriorityLevelI
	req.Shift = model.ShiftAfternoon

	c, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, c.PatientID)
	assert.Equal(t, model.PriorityLevelI, c.Priority)
	assert.Equal(t, model.ShiftAfternoon, c.Shift)
}

func TestBook_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	unknown := uuid.New()

	tests := []struct {
		name   string
		mutate func(*model.BookingRequest)
		code   errors.ErrorCode
	}{
		{"bad date", func(r *model.BookingRequest) { r.Date = "01/01/2024" }, errors.ErrValidation},
		{"bad time", func(r *model.BookingRequest) { r.Time = "9am" }, errors.ErrValidation},
		{"no patient", func(r *model.BookingRequest) { r.PatientID = nil }, errors.ErrValidation},
		{"bad priority", func(r *model.BookingRequest) { r.Priority = "URGENT" }, errors.ErrValidation},
		{"unknown patient", func(r *model.BookingRequest) { r.PatientID = &unknown }, errors.ErrNotFound},
		{"unknown identification", func(r *model.BookingRequest) {
			r.PatientID = nil
			r.PatientIdentification = "999999"
		}, errors.ErrNotFound},
		{"unknown doctor", func(r *model.BookingRequest) { r.DoctorID = unknown }, errors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("09:00")
			tt.mutate(req)
			_, err := f.svc.Book(context.Background(), req)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}

	consultations, err := f.mem.Consultations().List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, consultations)
}

func TestBook_EmitsEvent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c, err := f.svc.Book(ctx, f.request("09:00"))
	require.NoError(t, err)

	pending, err := f.mem.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, event.ConsultationBooked, pending[0].EventType)

	var payload event.Consultation
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	assert.Equal(t, c.ID, payload.ConsultationID)
	assert.Equal(t, "ana@example.com", payload.PatientEmail)
	assert.Equal(t, "Gregory House", payload.DoctorName)
	assert.Equal(t, "a101", payload.Room)
}

// racingStore makes the first Create calls lose the queue order race.
type racingStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
}

func (s *racingStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Store) error {
		return fn(&racingTx{Store: tx, parent: s})
	})
}

type racingTx struct {
	repository.Store
	parent *racingStore
}

func (t *racingTx) Consultations() repository.ConsultationRepository {
	return &racingConsultations{ConsultationRepository: t.Store.Consultations(), parent: t.parent}
}

type racingConsultations struct {
	repository.ConsultationRepository
	parent *racingStore
}

func (r *racingConsultations) Create(ctx context.Context, c *model.Consultation) error {
	r.parent.mu.Lock()
	defer r.parent.mu.Unlock()
	if r.parent.failures > 0 {
		r.parent.failures--
		return &repository.ConstraintError{Constraint: repository.ConstraintConsultationOrder}
	}
	return r.ConsultationRepository.Create(ctx, c)
}

func TestBook_RetriesOrderRace(t *testing.T) {
	f := newFixture(t, func(m *memory.Store) repository.Store {
		return &racingStore{Store: m, failures: 2}
	})

	c, err := f.svc.Book(context.Background(), f.request("09:00"))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Order)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.BookingRetries))
}

func TestBook_GivesUpAfterAttempts(t *testing.T) {
	f := newFixture(t, func(m *memory.Store) repository.Store {
		return &racingStore{Store: m, failures: 10}
	})

	_, err := f.svc.Book(context.Background(), f.request("09:00"))
	assert.True(t, errors.HasCode(err, errors.ErrSchedulingConflict))

	pending, err := f.mem.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestBook_ConcurrentOrdersAreUnique(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	orders := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := model.NewTimeOfDay(8, 0).Add(time.Duration(i*15) * time.Minute)
			c, err := f.svc.Book(ctx, f.request(at.String()))
			if assert.NoError(t, err, fmt.Sprintf("booking %d", i)) {
				orders <- c.Order
			}
		}(i)
	}
	wg.Wait()
	close(orders)

	var got []int
	for o := range orders {
		got = append(got, o)
	}
	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}

func TestFindWindow(t *testing.T) {
	windows := []*model.AvailabilityWindow{
		{Day: model.Monday, StartTime: model.NewTimeOfDay(8, 0), EndTime: model.NewTimeOfDay(12, 0), Room: "A101"},
		{Day: model.Monday, StartTime: model.NewTimeOfDay(14, 0), EndTime: model.NewTimeOfDay(18, 0), Room: "B202"},
	}

	w := FindWindow(windows, model.Monday, model.NewTimeOfDay(15, 0))
	require.NotNil(t, w)
	assert.Equal(t, "B202", w.Room)
	assert.Nil(t, FindWindow(windows, model.Monday, model.NewTimeOfDay(13, 0)))
	assert.Nil(t, FindWindow(windows, model.Tuesday, model.NewTimeOfDay(9, 0)))
}
