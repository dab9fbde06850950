package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type auditRepository struct {
	db sqlx.ExtContext
}

func NewAuditRepository(db sqlx.ExtContext) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, account_id, action, entity_type, entity_id, metadata, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	var metadata interface{}
	if len(log.Metadata) > 0 {
		metadata = []byte(log.Metadata)
	}

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.AccountID,
		log.Action,
		log.EntityType,
		log.EntityID,
		metadata,
		log.IPAddress,
		log.UserAgent,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	var w where
	limit, offset := 50, 0
	if filters != nil {
		if filters.AccountID != nil {
			w.add("account_id = $%d", *filters.AccountID)
		}
		if filters.EntityType != "" {
			w.add("entity_type = $%d", filters.EntityType)
		}
		if filters.EntityID != nil {
			w.add("entity_id = $%d", *filters.EntityID)
		}
		if filters.Since != nil {
			w.add("created_at >= $%d", *filters.Since)
		}
		limit, offset = filters.Limit(), filters.Offset()
	}

	query := `
		SELECT id, account_id, action, entity_type, entity_id, COALESCE(metadata, '{}'::jsonb) AS metadata,
			ip_address, user_agent, created_at
		FROM audit_logs` + w.sql() + fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	var logs []*model.AuditLog
	if err := sqlx.SelectContext(ctx, r.db, &logs, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return result.RowsAffected()
}
