package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const sqlitePrefix = "sqlite:"

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
}

// DB is a database/sql handle plus the statement builder matching its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
	sb      sq.StatementBuilderType
	pool    *pgxpool.Pool
}

// Open connects to Postgres (postgres:// DSN) through a pgx pool, or to a
// local SQLite file when the DSN starts with "sqlite:".
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.HasPrefix(cfg.DSN, sqlitePrefix) {
		return openSQLite(ctx, strings.TrimPrefix(cfg.DSN, sqlitePrefix), logger)
	}
	return openPostgres(ctx, cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", DialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "solicitation-tracker"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	db := &DB{
		DB:      stdlib.OpenDBFromPool(pool),
		Dialect: DialectPostgres,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		pool:    pool,
	}
	logger.Info("successfully connected to database")
	return db, nil
}

func openSQLite(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	logger.Info("opening sqlite database", "path", path)
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single writer; also keeps ":memory:" databases on one connection.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqlDB.ExecContext(ctx, p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	return &DB{
		DB:      sqlDB,
		Dialect: DialectSQLite,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := d.DB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS extraction_batches (
		batch_id         TEXT PRIMARY KEY,
		total_files      INTEGER NOT NULL,
		successful       INTEGER NOT NULL,
		failed           INTEGER NOT NULL,
		success_rate     DOUBLE PRECISION NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL,
		started_at       BIGINT NOT NULL,
		completed_at     BIGINT NOT NULL,
		result_json      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS requirements (
		id              TEXT PRIMARY KEY,
		proposal_id     TEXT NOT NULL,
		section         TEXT NOT NULL,
		kind            TEXT NOT NULL,
		text            TEXT NOT NULL,
		source_document TEXT NOT NULL,
		page            INTEGER NOT NULL,
		chunk_index     INTEGER NOT NULL,
		method          TEXT NOT NULL,
		created_at      BIGINT NOT NULL,
		ordinal         INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requirements_proposal ON requirements (proposal_id)`,
}

// Migrate creates the tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// timestamps are stored as unix milliseconds in both dialects
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
