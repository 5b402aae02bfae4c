package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dmitrymomot/cudatel/core/logger"
)

// ErrUnavailable is returned when at least one readiness check fails.
var ErrUnavailable = errors.New("service unavailable")

// Check reports whether a dependency is usable.
type Check func(context.Context) error

// Checks names the dependencies of a component.
type Checks map[string]Check

// Readiness runs every check in name order and returns ErrUnavailable joined
// with each failure. All checks run even after one fails.
//
// Example:
//
//	err := health.Readiness(ctx, log, health.Checks{
//		"redis": redis.Healthcheck(client),
//		"pg":    pg.Healthcheck(pool),
//	})
func Readiness(ctx context.Context, log *slog.Logger, checks Checks) error {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		check := checks[name]
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			if log != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Component(name), logger.Error(err))
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrUnavailable}, errs...)...)
	}
	return nil
}

// Liveness always succeeds. It marks components that have no dependencies.
func Liveness(context.Context) error {
	return nil
}
