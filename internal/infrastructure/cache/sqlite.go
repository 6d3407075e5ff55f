package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/platewise/resolver/internal/domain"
)

// SQLiteStore is the durable barcode→product cache. Entries older than the
// freshness window read as misses so the engine re-fetches drifted records.
type SQLiteStore struct {
	db        *sql.DB
	freshness time.Duration
}

// NewSQLiteStore opens (or creates) the store at dbPath.
func NewSQLiteStore(dbPath string, freshness time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open product store: %w", err)
	}

	if freshness <= 0 {
		freshness = 30 * 24 * time.Hour
	}
	store := &SQLiteStore{db: db, freshness: freshness}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize product store schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS products (
        code TEXT PRIMARY KEY,
        payload TEXT NOT NULL,
        fetched_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_products_fetched_at ON products(fetched_at);
    `
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the stored product for code, or ErrCacheMiss when absent or
// stale.
func (s *SQLiteStore) Get(ctx context.Context, code string) (*domain.ProductRecord, error) {
	var payload string
	var fetchedAt time.Time

	row := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM products WHERE code = ?`, code)
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read product %s: %w", code, err)
	}

	if time.Since(fetchedAt) > s.freshness {
		return nil, domain.ErrCacheMiss
	}

	var product domain.ProductRecord
	if err := json.Unmarshal([]byte(payload), &product); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", code, err)
	}
	return &product, nil
}

// Put upserts a product keyed by barcode, stamping the fetch time as the
// modification marker.
func (s *SQLiteStore) Put(ctx context.Context, code string, product *domain.ProductRecord) error {
	payload, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product %s: %w", code, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (code, payload, fetched_at) VALUES (?, ?, ?)
         ON CONFLICT(code) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		code, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", code, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
