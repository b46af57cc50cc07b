// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/retail-listing-scraper/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "listing_publications"

// LedgerStoreConfig controls the Postgres connection pool used for publication rows.
type LedgerStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// LedgerStore writes one row per published listing.
type LedgerStore struct {
	pool  execCloser
	table string
}

// NewLedgerStore creates a Postgres-backed LedgerStore using the provided config.
func NewLedgerStore(ctx context.Context, cfg LedgerStoreConfig) (*LedgerStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("ledger.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &LedgerStore{pool: pool, table: table}, nil
}

// NewLedgerStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewLedgerStoreWithPool(pool execCloser, table string) (*LedgerStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &LedgerStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *LedgerStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordPublication inserts a publication row. Replays of the same job id are ignored.
// Optional columns are written as empty strings when the stage that fills them was disabled.
func (s *LedgerStore) RecordPublication(ctx context.Context, record scraper.PublicationRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("ledger store is not configured")
	}
	if record.JobID == "" {
		return fmt.Errorf("record job id is required")
	}
	publishedAt := record.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	job_id,
	source_channel,
	main_identifier,
	url,
	archive_uri,
	content_hash,
	published_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (job_id) DO NOTHING`, s.table)

	args := []any{
		record.JobID,
		record.SourceChannel,
		record.MainIdentifier,
		record.URL,
		record.ArchiveURI,
		record.ContentHash,
		publishedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

