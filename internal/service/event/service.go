package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// EventService writes domain events to the outbox. Callers pass the
// transactional outbox so the event commits or rolls back with the change
// that caused it.
type EventService interface {
	Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) error
}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
	}
	if err := outbox.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
