// Package store provides storage backends for MicroTutor.
//
// The stores hold generation receipts: one audit record per tutor generation
// call. Sessions themselves are not persisted.
package store

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

// DefaultReceiptLimit caps how many receipts a single query returns.
const DefaultReceiptLimit = 500

// ReceiptStore records and lists generation receipts.
type ReceiptStore interface {
	AddGenerationReceipt(ctx context.Context, r models.GenerationReceipt) error
	GetGenerationReceipts(ctx context.Context, filter ReceiptFilter) ([]models.GenerationReceipt, error)
	Close() error
}

// ReceiptFilter narrows a receipt query. Zero values mean no constraint.
type ReceiptFilter struct {
	SessionID string
	Status    models.GenerationStatus
	// Limit defaults to DefaultReceiptLimit.
	Limit int
}

func (f ReceiptFilter) limit() int {
	if f.Limit <= 0 || f.Limit > DefaultReceiptLimit {
		return DefaultReceiptLimit
	}
	return f.Limit
}

// Opts holds store configuration.
type Opts struct {
	DSN string
}

// Option configures a store.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns the database/sql driver name for a DSN: "postgres" for
// postgres:// URLs and key=value connection strings, "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(d, "host=") || strings.Contains(d, "dbname=") || strings.Contains(d, "user=") {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the backend that matches the DSN. An empty DSN gives an in-memory store.
func New(dsn string) (ReceiptStore, error) {
	if dsn == "" {
		slog.Debug("Store.New: no DSN, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(dsn) == "postgres" {
		slog.Debug("Store.New: detected PostgreSQL DSN")
		return NewPostgresStore(WithPostgresDSN(dsn))
	}
	slog.Debug("Store.New: detected SQLite DSN", "path", dsn)
	return NewSQLiteStore(WithSQLiteDSN(dsn))
}

// InMemoryStore keeps receipts in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	receipts []models.GenerationReceipt
	nextID   int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddGenerationReceipt(_ context.Context, r models.GenerationReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.receipts = append(s.receipts, r)
	return nil
}

// GetGenerationReceipts returns matching receipts, newest first.
func (s *InMemoryStore) GetGenerationReceipts(_ context.Context, filter ReceiptFilter) ([]models.GenerationReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GenerationReceipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		if filter.SessionID != "" && r.SessionID != filter.SessionID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if n := filter.limit(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
