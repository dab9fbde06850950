package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// AuditPurger deletes audit entries older than a cutoff; audit.Service
// implements it.
type AuditPurger interface {
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

type AuditCleanupWorker struct {
	audit           AuditPurger
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
	now             func() time.Time
}

func NewAuditCleanupWorker(audit AuditPurger, retentionDays int, cleanupInterval time.Duration, log *logger.Logger) *AuditCleanupWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditCleanupWorker{
		audit:           audit,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          log,
		now:             time.Now,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) {
	if w.retentionDays <= 0 || w.cleanupInterval <= 0 {
		w.logger.Info("Audit cleanup disabled")
		return
	}

	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Error cleaning up audit logs")
			}
		}
	}
}

// Cleanup runs one retention pass and returns the number of deleted rows.
func (w *AuditCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.audit.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	w.logger.Info("Cleaned up audit logs", "rows", rows, "cutoff", cutoff.Format(time.RFC3339))
	return rows, nil
}
