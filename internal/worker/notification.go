package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// NotificationWorker emails patients when their consultation is booked or
// cancelled. Patients without an email on file are skipped.
type NotificationWorker struct {
	broker  messaging.Broker
	mailer  email.Service
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewNotificationWorker(broker messaging.Broker, mailer email.Service, log *logger.Logger, m *metrics.Metrics) *NotificationWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &NotificationWorker{
		broker:  broker,
		mailer:  mailer,
		logger:  log,
		metrics: m,
	}
}

// Start consumes both channels until ctx ends.
func (w *NotificationWorker) Start(ctx context.Context) error {
	handlers := map[string]messaging.Handler{
		event.ConsultationBooked:    w.HandleBooked,
		event.ConsultationCancelled: w.HandleCancelled,
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(handlers))
	for channel, handler := range handlers {
		wg.Add(1)
		go func(channel string, handler messaging.Handler) {
			defer wg.Done()
			if err := messaging.Consume(ctx, w.broker, channel, handler); err != nil {
				errs <- err
			}
		}(channel, handler)
	}
	wg.Wait()
	close(errs)

	return <-errs
}

func decodeConsultation(payload []byte) (event.Consultation, error) {
	var c event.Consultation
	if err := json.Unmarshal(payload, &c); err != nil {
		return c, fmt.Errorf("failed to decode consultation event: %w", err)
	}
	return c, nil
}

func (w *NotificationWorker) HandleBooked(ctx context.Context, payload []byte) error {
	c, err := decodeConsultation(payload)
	if err != nil {
		return err
	}
	if c.PatientEmail == "" {
		w.logger.Debug("No patient email, skipping booking notification", "consultation_id", c.ConsultationID.String())
		return nil
	}

	err = w.mailer.SendBookingConfirmation(ctx, c)
	w.metrics.ObserveNotification(err)
	return err
}

func (w *NotificationWorker) HandleCancelled(ctx context.Context, payload []byte) error {
	c, err := decodeConsultation(payload)
	if err != nil {
		return err
	}
	if c.PatientEmail == "" {
		return nil
	}

	err = w.mailer.SendCancellation(ctx, c)
	w.metrics.ObserveNotification(err)
	return err
}
