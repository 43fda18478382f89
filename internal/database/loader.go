package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/verdantdev/dispensary-scraper/internal/models"
)

const insertAttempts = 3

// productColumns matches the pre-existing per-category tables. Schema
// is never created here.
var productColumns = []string{
	"region", "store", "category", "name", "brand", "strain",
	"thc_pct", "size_raw", "grams", "price", "price_per_gram",
	"url", "captured_at",
}

// CopyConn is the slice of the pool the loader needs; *pgxpool.Pool
// satisfies it.
type CopyConn interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Loader bulk-inserts scraped products into their category tables.
type Loader struct {
	conn   CopyConn
	tables map[models.Category]string
	logger *slog.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

func NewLoader(conn CopyConn, tables map[models.Category]string, logger *slog.Logger) *Loader {
	return &Loader{
		conn:   conn,
		tables: tables,
		logger: logger.With("component", "loader"),
		sleep:  time.Sleep,
	}
}

// InsertCategory loads one category's products into its target table
// with up to three attempts and exponential backoff. An empty batch is
// a successful no-op that never touches the data store; a category with
// no table mapping fails immediately since retrying cannot fix it.
func (l *Loader) InsertCategory(ctx context.Context, category models.Category, products []models.Product) *models.InsertOutcome {
	start := time.Now()

	if len(products) == 0 {
		return &models.InsertOutcome{
			TableName:  l.tables[category],
			Category:   category,
			Success:    true,
			InsertedAt: time.Now(),
		}
	}

	table, ok := l.tables[category]
	if !ok {
		return &models.InsertOutcome{
			TableName:    "unknown",
			Category:     category,
			Success:      false,
			RowsFailed:   len(products),
			ErrorMessage: fmt.Sprintf("no table mapping for category %q", category),
			Duration:     time.Since(start),
			InsertedAt:   time.Now(),
		}
	}

	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{
			p.Region, p.Store, string(p.Category), p.Name, p.Brand, p.StrainType,
			p.THCPct, p.SizeRaw, p.Grams, p.Price, p.PricePerG,
			p.URL, p.CapturedAt,
		})
	}

	var lastErr error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			l.logger.Warn("retrying bulk insert", "table", table, "attempt", attempt+1, "backoff", backoff)
			l.sleep(backoff)
		}

		inserted, err := l.conn.CopyFrom(ctx, pgx.Identifier{table}, productColumns, pgx.CopyFromRows(rows))
		if err != nil {
			lastErr = err
			continue
		}

		l.logger.Info("bulk insert completed", "table", table, "rows", inserted)
		return &models.InsertOutcome{
			TableName:    table,
			Category:     category,
			Success:      true,
			RowsInserted: int(inserted),
			Duration:     time.Since(start),
			InsertedAt:   time.Now(),
		}
	}

	l.logger.Error("bulk insert failed", "table", table, "error", lastErr)
	return &models.InsertOutcome{
		TableName:    table,
		Category:     category,
		Success:      false,
		RowsFailed:   len(products),
		ErrorMessage: lastErr.Error(),
		Duration:     time.Since(start),
		InsertedAt:   time.Now(),
	}
}

// LoadResults inserts every successful category result, in the fixed
// category order. A failed insert for one category never stops the
// others.
func (l *Loader) LoadResults(ctx context.Context, results map[models.Category]*models.CategoryResult) map[models.Category]*models.InsertOutcome {
	outcomes := make(map[models.Category]*models.InsertOutcome)

	for _, category := range models.Categories {
		result, ok := results[category]
		if !ok || !result.Success || len(result.Products) == 0 {
			continue
		}
		outcomes[category] = l.InsertCategory(ctx, category, result.Products)
	}

	return outcomes
}
