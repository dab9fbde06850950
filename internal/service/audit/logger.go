package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Auditor is what the domain services record audit entries through.
type Auditor interface {
	Record(ctx context.Context, action, entityType string, entityID uuid.UUID, opts *LogOptions)
}

// AuditLogger records entries without failing the caller. Write errors are
// logged. In async mode entries are written on a goroutine detached from the
// request's cancellation; Wait blocks until those are flushed.
type AuditLogger struct {
	service *Service
	log     *zerolog.Logger
	async   bool
	wg      sync.WaitGroup
}

func NewAuditLogger(service *Service, log *zerolog.Logger, async bool) *AuditLogger {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &AuditLogger{
		service: service,
		log:     log,
		async:   async,
	}
}

func (l *AuditLogger) Record(ctx context.Context, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	if !l.async {
		l.write(ctx, action, entityType, entityID, opts)
		return
	}

	ctx = context.WithoutCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.write(ctx, action, entityType, entityID, opts)
	}()
}

func (l *AuditLogger) write(ctx context.Context, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	if err := l.service.Log(ctx, action, entityType, entityID, opts); err != nil {
		l.log.Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Str("entity_id", entityID.String()).
			Msg("Failed to write audit log")
	}
}

// Wait blocks until pending async entries are written.
func (l *AuditLogger) Wait() {
	l.wg.Wait()
}
