// This file implements a PostgreSQL-backed receipt store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "embed"

	"github.com/BTreeMap/MicroTutor/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore.NewPostgresStore: failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddGenerationReceipt(ctx context.Context, r models.GenerationReceipt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_receipts (session_id, module_id, status, stage, cause, latency_ms, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.SessionID, nilIfEmpty(r.ModuleID), string(r.Status), nilIfEmpty(r.Stage), nilIfEmpty(r.Cause), r.LatencyMS, r.Time)
	if err != nil {
		slog.Error("PostgresStore.AddGenerationReceipt: insert failed", "error", err, "sessionID", r.SessionID)
		return fmt.Errorf("failed to insert receipt for session %s: %w", r.SessionID, err)
	}
	slog.Debug("PostgresStore.AddGenerationReceipt: stored", "sessionID", r.SessionID, "status", r.Status)
	return nil
}

func (s *PostgresStore) GetGenerationReceipts(ctx context.Context, filter ReceiptFilter) ([]models.GenerationReceipt, error) {
	q, args := receiptQuery(filter, func(n int) string { return "$" + strconv.Itoa(n) })
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		slog.Error("PostgresStore.GetGenerationReceipts: query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts, err := scanReceipts(rows)
	if err != nil {
		slog.Error("PostgresStore.GetGenerationReceipts: scan failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore.GetGenerationReceipts: succeeded", "count", len(receipts))
	return receipts, nil
}

// ClearGenerationReceipts deletes all receipts (for tests).
func (s *PostgresStore) ClearGenerationReceipts() error {
	_, err := s.db.Exec("DELETE FROM generation_receipts")
	if err != nil {
		slog.Error("PostgresStore.ClearGenerationReceipts: failed", "error", err)
	}
	return err
}

func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore.Close: closing database")
	return s.db.Close()
}
