package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "clinic")

	m.ObserveBooking(ResultBooked, time.Now())
	m.ObserveBooking(ResultBooked, time.Now())
	m.ObserveBooking(ResultConflict, time.Now())
	m.IncBookingRetry()
	m.ObserveTransition("waiting", "attended", ResultAccepted)
	m.ObserveSlotQuery(false)
	m.ObserveDatabase("get_pending_events", errors.New("down"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Bookings.WithLabelValues(ResultBooked)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Bookings.WithLabelValues(ResultConflict)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BookingRetries))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Transitions.WithLabelValues("waiting", "attended", ResultAccepted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SlotQueries.WithLabelValues("false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("get_pending_events", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveBooking(ResultBooked, time.Now())
		m.IncBookingRetry()
		m.ObserveScheduleValidation(ResultRejected)
		m.ObserveTransition("waiting", "cancelled", ResultAccepted)
		m.ObserveSlotQuery(true)
		m.ObserveBroker("publish", nil)
		m.ObserveNotification(nil)
	})
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry(), "clinic")
		NewMetrics(prometheus.NewRegistry(), "clinic")
	})
}
