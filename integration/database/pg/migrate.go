package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// Migrate applies the migrations found on disk at cfg.MigrationsPath.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	if cfg.MigrationsPath == "" {
		return ErrMigrationPathNotProvided
	}
	if _, err := os.Stat(cfg.MigrationsPath); err != nil {
		return errors.Join(ErrMigrationsDirNotFound, err)
	}
	return MigrateFS(ctx, pool, os.DirFS(cfg.MigrationsPath), ".", cfg.MigrationsTable, log)
}

// MigrateFS applies the migrations in dir of fsys, typically an embed.FS
// shipped with a store package.
func MigrateFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir, table string, log *slog.Logger) error {
	if _, err := fs.Stat(fsys, dir); err != nil {
		return errors.Join(ErrMigrationsDirNotFound, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	if table != "" {
		goose.SetTableName(table)
	}
	if log != nil {
		goose.SetLogger(gooseLogger{log})
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// gooseLogger routes goose output to slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
