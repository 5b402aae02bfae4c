// Package pg connects to PostgreSQL through a pgx pool and applies goose
// migrations.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.MigrateFS(ctx, pool, migrations, "migrations", cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
// Config fields map to PG_* environment variables (PG_CONN_URL is required).
// Connect retries the first ping with exponential backoff.
//
// goose works on database/sql, so migrations run on a *sql.DB opened from
// the pool with pgx's stdlib adapter. Migrate reads a directory on disk;
// MigrateFS reads any fs.FS, such as an embedded one.
//
// WithTx and TxFromContext carry a pgx.Tx through a context so repositories
// can take part in the caller's transaction:
//
//	tx, err := pool.Begin(ctx)
//	...
//	ctx = pg.WithTx(ctx, tx)
//	err = store.Save(ctx, "admin", rec) // runs inside tx
//
// IsNotFoundError, IsDuplicateKeyError, IsForeignKeyViolationError and
// IsTxClosedError classify driver errors.
package pg
