// Package health aggregates dependency checks into a readiness verdict.
//
// Checks follow the func(context.Context) error signature shared by the
// integration packages:
//
//	checks := health.Checks{
//		"session store": redis.Healthcheck(client),
//		"boot":          health.Liveness,
//	}
//	if err := health.Readiness(ctx, log, checks); err != nil {
//		// errors.Is(err, health.ErrUnavailable)
//	}
package health
