package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking results used as the "result" label.
const (
	ResultBooked     = "booked"
	ResultConflict   = "conflict"
	ResultValidation = "validation"
	ResultNotFound   = "not_found"
	ResultError      = "error"
	ResultAccepted   = "accepted"
	ResultRejected   = "rejected"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Scheduling metrics
	Bookings            *prometheus.CounterVec
	BookingRetries      prometheus.Counter
	BookingLatency      prometheus.Histogram
	ScheduleValidations *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	SlotQueries         *prometheus.CounterVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxQueueSize         prometheus.Gauge
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec

	// Broker metrics
	BrokerOperations *prometheus.CounterVec

	// Notification metrics
	NotificationsSent *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Bookings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		BookingRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "booking_retries_total",
			Help:      "Bookings retried after losing a queue order race",
		}),
		BookingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "booking_duration_seconds",
			Help:      "Time spent booking a consultation",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ScheduleValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "window_batches_total",
			Help:      "Availability window batches by validation result",
		}, []string{"result"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "consultation_transitions_total",
			Help:      "Consultation status transitions",
		}, []string{"from", "to", "result"}),
		SlotQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "slot_queries_total",
			Help:      "Day slot queries by whether the doctor attends that day",
		}, []string{"attends"}),

		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "queue_size",
			Help:      "Events fetched in the last poll",
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),

		BrokerOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_operations_total",
			Help:      "Total number of message broker operations",
		}, []string{"operation", "status"}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification emails by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveBooking(result string, started time.Time) {
	if m == nil {
		return
	}
	m.Bookings.WithLabelValues(result).Inc()
	m.BookingLatency.Observe(time.Since(started).Seconds())
}

func (m *Metrics) IncBookingRetry() {
	if m == nil {
		return
	}
	m.BookingRetries.Inc()
}

func (m *Metrics) ObserveScheduleValidation(result string) {
	if m == nil {
		return
	}
	m.ScheduleValidations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to, result).Inc()
}

func (m *Metrics) ObserveSlotQuery(attends bool) {
	if m == nil {
		return
	}
	label := "false"
	if attends {
		label = "true"
	}
	m.SlotQueries.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveDatabase(operation string, err error) {
	if m == nil {
		return
	}
	m.DatabaseOperations.WithLabelValues(operation, status(err)).Inc()
}

func (m *Metrics) ObserveBroker(operation string, err error) {
	if m == nil {
		return
	}
	m.BrokerOperations.WithLabelValues(operation, status(err)).Inc()
}

func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
