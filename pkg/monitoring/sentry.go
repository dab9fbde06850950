// Package monitoring reports errors and request traces to Sentry. Every
// function is a no-op until InitSentry has been called with a DSN.
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
}

// InitSentry configures the global client. An empty DSN disables reporting.
func InitSentry(cfg SentryConfig) error {
	if cfg.DSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

// Flush waits for buffered events before the program terminates.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// HubFromContext returns the request hub, falling back to the global one.
func HubFromContext(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

func CaptureError(ctx context.Context, err error, extra map[string]interface{}) {
	hub := HubFromContext(ctx)
	if hub == nil || hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range extra {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}
