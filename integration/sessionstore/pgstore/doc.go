// Package pgstore is a sessionstore.Store on PostgreSQL.
//
// The schema ships embedded and is applied with goose:
//
//	pool, err := pg.Connect(ctx, cfg)
//	...
//	if err := pgstore.Migrate(ctx, pool, log); err != nil {
//		return err
//	}
//	store := pgstore.New(pool)
//
// Writes join a caller transaction attached with pg.WithTx.
package pgstore
