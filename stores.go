package cudatel

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/cudatel/core/config"
	"github.com/dmitrymomot/cudatel/core/health"
	"github.com/dmitrymomot/cudatel/core/sessionstore"
	"github.com/dmitrymomot/cudatel/core/tunnel"
	"github.com/dmitrymomot/cudatel/integration/database/mongo"
	"github.com/dmitrymomot/cudatel/integration/database/pg"
	"github.com/dmitrymomot/cudatel/integration/database/redis"
	"github.com/dmitrymomot/cudatel/integration/sessionstore/mongostore"
	"github.com/dmitrymomot/cudatel/integration/sessionstore/pgstore"
	"github.com/dmitrymomot/cudatel/integration/sessionstore/redisstore"
	"github.com/dmitrymomot/cudatel/integration/sessionstore/s3store"
)

// Backend is an opened session store with its lifecycle hooks.
type Backend struct {
	Store sessionstore.Store
	// Close releases the connections behind Store.
	Close func(ctx context.Context) error
	// Healthcheck reports whether the backing service is reachable.
	Healthcheck health.Check
}

func noopClose(context.Context) error { return nil }

func local(store sessionstore.Store) Backend {
	return Backend{Store: store, Close: noopClose, Healthcheck: health.Liveness}
}

// OpenStore builds the session store named by cfg.Store. Backend connection
// settings come from their own env vars (REDIS_URL, PG_CONN_URL, MONGODB_URL, S3_*).
func OpenStore(ctx context.Context, cfg Config, log *slog.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case StoreFile, "":
		return local(sessionstore.NewFile(cfg.SessionFile)), nil

	case StoreMemory:
		return local(sessionstore.NewMemory()), nil

	case StoreRedis:
		var rc redis.Config
		if err := config.Load(&rc); err != nil {
			return Backend{}, errors.Join(tunnel.ErrConfiguration, err)
		}
		client, err := redis.Connect(ctx, rc)
		if err != nil {
			return Backend{}, err
		}
		return Backend{
			Store:       redisstore.New(client, redisstore.WithTTL(cfg.SessionTTL)),
			Close:       func(context.Context) error { return client.Close() },
			Healthcheck: redis.Healthcheck(client),
		}, nil

	case StorePostgres:
		var pc pg.Config
		if err := config.Load(&pc); err != nil {
			return Backend{}, errors.Join(tunnel.ErrConfiguration, err)
		}
		pool, err := pg.Connect(ctx, pc)
		if err != nil {
			return Backend{}, err
		}
		if err := pgstore.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return Backend{}, err
		}
		closeFn := func(context.Context) error {
			pool.Close()
			return nil
		}
		return Backend{Store: pgstore.New(pool), Close: closeFn, Healthcheck: pg.Healthcheck(pool)}, nil

	case StoreMongo:
		var mc mongo.Config
		if err := config.Load(&mc); err != nil {
			return Backend{}, errors.Join(tunnel.ErrConfiguration, err)
		}
		db, err := mongo.NewWithDatabase(ctx, mc, cfg.MongoDatabase)
		if err != nil {
			return Backend{}, err
		}
		return Backend{
			Store:       mongostore.NewFromDatabase(db),
			Close:       db.Client().Disconnect,
			Healthcheck: mongo.Healthcheck(db.Client()),
		}, nil

	case StoreS3:
		var sc s3store.Config
		if err := config.Load(&sc); err != nil {
			return Backend{}, errors.Join(tunnel.ErrConfiguration, err)
		}
		store, err := s3store.New(ctx, sc)
		if err != nil {
			return Backend{}, errors.Join(tunnel.ErrConfiguration, err)
		}
		return Backend{Store: store, Close: noopClose, Healthcheck: store.Healthcheck}, nil
	}

	return Backend{}, errors.Join(tunnel.ErrConfiguration, errors.New("unknown session store: "+cfg.Store))
}
