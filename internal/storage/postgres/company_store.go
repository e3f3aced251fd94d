// Package postgres stores company records in Postgres, one JSONB document per row.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

// DefaultTable receives inserted company batches.
const DefaultTable = "companies"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var copyColumns = []string{"run_id", "name", "company", "roc", "status", "document", "scraped_at"}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %s (
	id         BIGSERIAL PRIMARY KEY,
	run_id     TEXT        NOT NULL,
	name       TEXT        NOT NULL,
	company    TEXT        NOT NULL,
	roc        TEXT        NOT NULL DEFAULT '',
	status     TEXT        NOT NULL DEFAULT '',
	document   JSONB       NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL
)`

// Config controls the per-run Postgres connection.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
	// CreateTable runs CREATE TABLE IF NOT EXISTS when a connection opens.
	CreateTable bool
}

type copyExecCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
	Close()
}

type connectFunc func(ctx context.Context, cfg Config) (copyExecCloser, error)

// Opener acquires a Postgres pool for a single run.
type Opener struct {
	cfg     Config
	connect connectFunc
}

// NewOpener validates cfg and returns an Opener.
func NewOpener(cfg Config) (*Opener, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !validTableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	return &Opener{cfg: cfg, connect: connectPool}, nil
}

// Open connects, optionally creates the table, and returns a Store that
// owns the connection until Close.
func (o *Opener) Open(ctx context.Context) (crawler.Sink, error) {
	pool, err := o.connect(ctx, o.cfg)
	if err != nil {
		return nil, err
	}
	if o.cfg.CreateTable {
		if _, err := pool.Exec(ctx, fmt.Sprintf(schemaTemplate, o.cfg.Table)); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create table %s: %w", o.cfg.Table, err)
		}
	}
	return &Store{pool: pool, table: o.cfg.Table}, nil
}

func connectPool(ctx context.Context, cfg Config) (copyExecCloser, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Store writes company batches with COPY.
type Store struct {
	pool  copyExecCloser
	table string
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(pool copyExecCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// BulkInsert copies every record of the batch in one COPY statement.
func (s *Store) BulkInsert(ctx context.Context, batch crawler.Batch) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("company store is not configured")
	}
	rows := make([][]any, 0, len(batch.Records))
	for _, record := range batch.Records {
		doc, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		rows = append(rows, []any{
			batch.RunID,
			record.Name,
			record.Company,
			record.ROC,
			record.Status,
			doc,
			batch.ScrapedAt,
		})
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy companies: %w", err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy companies: wrote %d of %d rows", n, len(rows))
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
