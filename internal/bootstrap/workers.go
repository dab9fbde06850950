package bootstrap

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/audit"
	internalworker "github.com/jwalitptl/clinic-api/internal/worker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func NewMailer(cfg config.SMTPConfig) email.Service {
	if !cfg.Enabled {
		return email.LogService{}
	}
	return email.NewSMTPService(email.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}

// RunWorkers publishes the outbox, sends notifications and purges old audit
// entries until ctx is cancelled or one of them fails.
func RunWorkers(ctx context.Context, cfg *config.Config, store repository.Store, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) error {
	processor, err := worker.NewOutboxProcessor(store.Outbox(), broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		RetentionDays: cfg.Outbox.RetentionDays,
	}, log, m)
	if err != nil {
		return fmt.Errorf("failed to create outbox processor: %w", err)
	}

	cleanup := internalworker.NewAuditCleanupWorker(audit.NewService(store.Audit()), cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval, log)
	notifications := internalworker.NewNotificationWorker(broker, NewMailer(cfg.SMTP), log, m)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		processor.Start(ctx)
		return nil
	})
	g.Go(func() error {
		cleanup.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return notifications.Start(ctx)
	})
	return g.Wait()
}
