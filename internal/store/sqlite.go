// This file implements an SQLite-backed receipt store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/MicroTutor/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to open connection", "error", err)
		return nil, err
	}
	// A single writer avoids "database is locked" under concurrent sessions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied", "path", dsn)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddGenerationReceipt(ctx context.Context, r models.GenerationReceipt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_receipts (session_id, module_id, status, stage, cause, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, nilIfEmpty(r.ModuleID), string(r.Status), nilIfEmpty(r.Stage), nilIfEmpty(r.Cause), r.LatencyMS, r.Time.UTC())
	if err != nil {
		slog.Error("SQLiteStore.AddGenerationReceipt: insert failed", "error", err, "sessionID", r.SessionID)
		return fmt.Errorf("failed to insert receipt for session %s: %w", r.SessionID, err)
	}
	slog.Debug("SQLiteStore.AddGenerationReceipt: stored", "sessionID", r.SessionID, "status", r.Status)
	return nil
}

func (s *SQLiteStore) GetGenerationReceipts(ctx context.Context, filter ReceiptFilter) ([]models.GenerationReceipt, error) {
	q, args := receiptQuery(filter, func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		slog.Error("SQLiteStore.GetGenerationReceipts: query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts, err := scanReceipts(rows)
	if err != nil {
		slog.Error("SQLiteStore.GetGenerationReceipts: scan failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore.GetGenerationReceipts: succeeded", "count", len(receipts))
	return receipts, nil
}

// ClearGenerationReceipts deletes all receipts (for tests).
func (s *SQLiteStore) ClearGenerationReceipts() error {
	_, err := s.db.Exec("DELETE FROM generation_receipts")
	return err
}

func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore.Close: closing database")
	return s.db.Close()
}
