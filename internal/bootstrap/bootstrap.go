// Package bootstrap builds the infrastructure shared by the api, worker and
// clinicctl binaries from a loaded config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/messaging/kafka"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func NewLogger(cfg config.LogConfig, output io.Writer) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Level),
		Output: output,
		Pretty: cfg.Pretty,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore returns the store selected by database.driver and a closer for
// its connection pool.
func OpenStore(cfg config.DatabaseConfig) (repository.Store, io.Closer, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), nopCloser{}, nil
	case "postgres":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(db), db, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// NewBroker returns the broker selected by broker.driver. "none" keeps
// events inside the process.
func NewBroker(cfg *config.Config, log *logger.Logger) (messaging.Broker, error) {
	zl := log.Zerolog()
	switch cfg.Broker.Driver {
	case "redis":
		return redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &zl)
	case "kafka":
		return kafka.NewKafkaBroker(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
		}, &zl)
	case "none":
		return messaging.NewMemoryBroker(), nil
	}
	return nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
}

// EnsureAdmin creates the configured administrator unless an account with
// that username already exists. It reports whether an account was created.
func EnsureAdmin(ctx context.Context, store repository.Store, hasher security.PasswordHasher, cfg config.AdminConfig) (bool, error) {
	if cfg.Password == "" {
		return false, nil
	}
	_, err := store.Accounts().GetByUsername(ctx, cfg.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("failed to look up administrator: %w", err)
	}

	admin, err := account.NewAccount(hasher, &model.CreateAccountRequest{
		Username:  cfg.Username,
		Email:     cfg.Email,
		FirstName: "Clinic",
		LastName:  "Administrator",
		Password:  cfg.Password,
	}, model.RoleAdministrator)
	if err != nil {
		return false, err
	}
	if err := store.Accounts().Create(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create administrator: %w", err)
	}
	return true, nil
}
