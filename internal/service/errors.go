// Package service holds helpers shared by the domain services under it.
package service

import (
	stderrors "errors"
	"fmt"

	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// RepoError converts repository.ErrNotFound into a NotFound AppError for
// entity and wraps anything else with the failed action.
func RepoError(err error, action, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NewNotFound(entity, err)
	}
	return fmt.Errorf("failed to %s %s: %w", action, entity, err)
}
