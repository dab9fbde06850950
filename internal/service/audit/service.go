package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes  interface{}
	Metadata interface{}
}

// Log creates an audit log entry. The acting account and client details
// come from ctx when the request carried them.
func (s *Service) Log(ctx context.Context, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	metadata, err := encodeMetadata(opts)
	if err != nil {
		return fmt.Errorf("failed to encode audit metadata: %w", err)
	}

	info := model.RequestInfoFromContext(ctx)
	log := &model.AuditLog{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		IPAddress:  info.IPAddress,
		UserAgent:  info.UserAgent,
		CreatedAt:  time.Now().UTC(),
	}
	if actor, ok := model.ActorFromContext(ctx); ok && actor.AccountID != uuid.Nil {
		id := actor.AccountID
		log.AccountID = &id
	}

	if err := s.repo.Create(ctx, log); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func encodeMetadata(opts *LogOptions) (json.RawMessage, error) {
	if opts == nil || (opts.Changes == nil && opts.Metadata == nil) {
		return nil, nil
	}
	doc := map[string]interface{}{}
	if opts.Changes != nil {
		doc["changes"] = opts.Changes
	}
	if opts.Metadata != nil {
		doc["metadata"] = opts.Metadata
	}
	return json.Marshal(doc)
}

func (s *Service) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	logs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

// Cleanup removes entries older than before.
func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.Cleanup(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up audit logs: %w", err)
	}
	return n, nil
}
