package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type outboxRepository struct {
	db conn
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	defer r.db.lock()()

	now := time.Now().UTC()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = model.OutboxStatusPending
	}
	event.CreatedAt = now
	event.UpdatedAt = now
	r.db.st.outbox[event.ID] = *event
	return nil
}

// GetPendingEvents returns pending events and failed events whose retry time has passed.
func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	now := time.Now()
	var out []*model.OutboxEvent
	for _, e := range r.db.st.outbox {
		ready := e.Status == model.OutboxStatusPending ||
			(e.Status == model.OutboxStatusFailed && e.RetryAt != nil && !e.RetryAt.After(now))
		if ready {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	defer r.db.lock()()

	e, ok := r.db.st.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	e.Status = status
	e.ErrorMessage = errorMessage
	e.RetryAt = retryAt
	e.UpdatedAt = now
	switch status {
	case model.OutboxStatusProcessed:
		e.ProcessedAt = &now
	case model.OutboxStatusFailed:
		e.RetryCount++
	}
	r.db.st.outbox[id] = e
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	defer r.db.lock()()

	var n int64
	for id, e := range r.db.st.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.db.st.outbox, id)
			n++
		}
	}
	return n, nil
}

type auditRepository struct {
	db conn
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	defer r.db.lock()()

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	r.db.st.audit = append(r.db.st.audit, *log)
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.AuditLog
	for i := len(r.db.st.audit) - 1; i >= 0; i-- {
		l := r.db.st.audit[i]
		if filters != nil {
			if filters.AccountID != nil && (l.AccountID == nil || *l.AccountID != *filters.AccountID) {
				continue
			}
			if filters.EntityType != "" && l.EntityType != filters.EntityType {
				continue
			}
			if filters.EntityID != nil && l.EntityID != *filters.EntityID {
				continue
			}
			if filters.Since != nil && l.CreatedAt.Before(*filters.Since) {
				continue
			}
		}
		out = append(out, &l)
	}
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

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	defer r.db.lock()()

	kept := r.db.st.audit[:0]
	var n int64
	for _, l := range r.db.st.audit {
		if l.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.db.st.audit = kept
	return n, nil
}
