// Package database wraps the analytical store: a pgx pool with retried
// connection establishment, and the bulk loader for scraped products.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verdantdev/dispensary-scraper/internal/config"
)

const connectAttempts = 3

type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes the pool with up to three attempts and
// exponential backoff (1s, 2s). Exhausting the attempts is fatal to the
// load phase: without a data store nothing can be persisted.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)

	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			logger.Warn("retrying database connection", "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			lastErr = err
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			lastErr = err
			continue
		}
		return &DB{pool: pool}, nil
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, lastErr)
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// QueryRow executes a query expected to return at most one row.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// CountRows returns the row count of a table, for post-load checks.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{table}.Sanitize())
	if err := db.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}
