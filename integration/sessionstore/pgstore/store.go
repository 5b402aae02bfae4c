package pgstore

import (
	"context"
	"embed"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/cudatel/core/sessionstore"
	"github.com/dmitrymomot/cudatel/integration/database/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrQuery wraps driver failures.
var ErrQuery = errors.New("session query failed")

// MigrationsTable tracks applied session migrations apart from the host application's.
const MigrationsTable = "cudatel_goose_db_version"

var _ sessionstore.Store = (*Store)(nil)

// Querier is the part of pgxpool.Pool and pgx.Tx used by Store.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store keeps one row per username in cudatel_sessions.
// A transaction attached with pg.WithTx takes precedence over the pool.
type Store struct {
	db Querier
}

// New returns a store on db.
func New(db Querier) *Store {
	return &Store{db: db}
}

// Migrate creates the sessions table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	return pg.MigrateFS(ctx, pool, migrations, "migrations", MigrationsTable, log)
}

const (
	loadSQL   = `SELECT record FROM cudatel_sessions WHERE username = $1`
	saveSQL   = `INSERT INTO cudatel_sessions (username, record, updated_at) VALUES ($1, $2, now())
ON CONFLICT (username) DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`
	deleteSQL = `DELETE FROM cudatel_sessions WHERE username = $1`
)

func (s *Store) Load(ctx context.Context, username string) (sessionstore.Record, error) {
	if username == "" {
		return sessionstore.Record{}, sessionstore.ErrInvalidUsername
	}

	var data []byte
	err := s.querier(ctx).QueryRow(ctx, loadSQL, username).Scan(&data)
	if pg.IsNotFoundError(err) {
		return sessionstore.Record{}, sessionstore.ErrNotFound
	}
	if err != nil {
		return sessionstore.Record{}, errors.Join(ErrQuery, err)
	}
	return sessionstore.Decode(data)
}

func (s *Store) Save(ctx context.Context, username string, rec sessionstore.Record) error {
	if username == "" {
		return sessionstore.ErrInvalidUsername
	}

	data, err := sessionstore.Encode(rec)
	if err != nil {
		return err
	}
	if _, err := s.querier(ctx).Exec(ctx, saveSQL, username, data); err != nil {
		return errors.Join(ErrQuery, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, username string) error {
	if username == "" {
		return sessionstore.ErrInvalidUsername
	}
	if _, err := s.querier(ctx).Exec(ctx, deleteSQL, username); err != nil {
		return errors.Join(ErrQuery, err)
	}
	return nil
}

func (s *Store) querier(ctx context.Context) Querier {
	if tx, ok := pg.TxFromContext(ctx); ok {
		return tx
	}
	return s.db
}
