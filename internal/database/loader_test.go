package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantdev/dispensary-scraper/internal/models"
)

type copyCall struct {
	table string
	rows  int
}

// fakeCopyConn scripts CopyFrom outcomes: one entry of errs per call,
// nil meaning success.
type fakeCopyConn struct {
	errs  []error
	calls []copyCall
}

func (c *fakeCopyConn) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	var rows int64
	for src.Next() {
		if _, err := src.Values(); err != nil {
			return 0, err
		}
		rows++
	}
	c.calls = append(c.calls, copyCall{table: table.Sanitize(), rows: int(rows)})

	var err error
	if len(c.errs) > 0 {
		err, c.errs = c.errs[0], c.errs[1:]
	}
	if err != nil {
		return 0, err
	}
	return rows, nil
}

func testTables() map[models.Category]string {
	return map[models.Category]string{
		models.CategoryWholeFlower: "tl_scrape_whole_flower",
		models.CategoryPreRolls:    "tl_scrape_pre_rolls",
		models.CategoryGroundShake: "tl_scrape_ground_shake",
	}
}

func newTestLoader(t *testing.T, conn CopyConn) (*Loader, *[]time.Duration) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := NewLoader(conn, testTables(), logger)

	var slept []time.Duration
	loader.sleep = func(d time.Duration) { slept = append(slept, d) }
	return loader, &slept
}

func testProducts(t *testing.T, category models.Category, n int) []models.Product {
	t.Helper()
	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		price := 30.0
		p, err := models.NewProduct(models.ProductInput{
			Region:   "FL",
			Store:    "Miami, FL",
			Category: category,
			Name:     "Blue Dream",
			Price:    &price,
		})
		require.NoError(t, err)
		products = append(products, p)
	}
	return products
}

func TestInsertCategoryEmptyBatch(t *testing.T) {
	conn := &fakeCopyConn{}
	loader, slept := newTestLoader(t, conn)

	outcome := loader.InsertCategory(context.Background(), models.CategoryWholeFlower, nil)

	assert.True(t, outcome.Success)
	assert.Zero(t, outcome.RowsInserted)
	assert.Equal(t, "tl_scrape_whole_flower", outcome.TableName)
	// An empty batch never reaches the data store.
	assert.Empty(t, conn.calls)
	assert.Empty(t, *slept)
}

func TestInsertCategoryMissingTableMapping(t *testing.T) {
	conn := &fakeCopyConn{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := NewLoader(conn, map[models.Category]string{}, logger)

	products := testProducts(t, models.CategoryPreRolls, 2)
	outcome := loader.InsertCategory(context.Background(), models.CategoryPreRolls, products)

	assert.False(t, outcome.Success)
	assert.Equal(t, "unknown", outcome.TableName)
	assert.Equal(t, 2, outcome.RowsFailed)
	assert.Contains(t, outcome.ErrorMessage, "no table mapping")
	assert.Empty(t, conn.calls)
}

func TestInsertCategoryFirstAttemptSucceeds(t *testing.T) {
	conn := &fakeCopyConn{}
	loader, slept := newTestLoader(t, conn)

	products := testProducts(t, models.CategoryWholeFlower, 3)
	outcome := loader.InsertCategory(context.Background(), models.CategoryWholeFlower, products)

	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.RowsInserted)
	require.Len(t, conn.calls, 1)
	assert.Equal(t, `"tl_scrape_whole_flower"`, conn.calls[0].table)
	assert.Equal(t, 3, conn.calls[0].rows)
	assert.Empty(t, *slept)
}

func TestInsertCategoryRetriesWithBackoff(t *testing.T) {
	conn := &fakeCopyConn{errs: []error{
		errors.New("connection reset"),
		errors.New("connection reset"),
		nil,
	}}
	loader, slept := newTestLoader(t, conn)

	products := testProducts(t, models.CategoryWholeFlower, 2)
	outcome := loader.InsertCategory(context.Background(), models.CategoryWholeFlower, products)

	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.RowsInserted)
	assert.Len(t, conn.calls, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestInsertCategoryExhaustsRetries(t *testing.T) {
	conn := &fakeCopyConn{errs: []error{
		errors.New("connection reset"),
		errors.New("connection reset"),
		errors.New("relation does not exist"),
	}}
	loader, _ := newTestLoader(t, conn)

	products := testProducts(t, models.CategoryWholeFlower, 2)
	outcome := loader.InsertCategory(context.Background(), models.CategoryWholeFlower, products)

	assert.False(t, outcome.Success)
	assert.Zero(t, outcome.RowsInserted)
	assert.Equal(t, 2, outcome.RowsFailed)
	assert.Equal(t, "relation does not exist", outcome.ErrorMessage)
	assert.Len(t, conn.calls, 3)
}

func TestLoadResultsSkipsFailedAndEmptyCategories(t *testing.T) {
	conn := &fakeCopyConn{}
	loader, _ := newTestLoader(t, conn)

	results := map[models.Category]*models.CategoryResult{
		models.CategoryWholeFlower: {
			Category: models.CategoryWholeFlower,
			Success:  true,
			Products: testProducts(t, models.CategoryWholeFlower, 2),
		},
		models.CategoryPreRolls: {
			Category:     models.CategoryPreRolls,
			Success:      false,
			ErrorMessage: "no products found for Pre-Rolls",
		},
		models.CategoryGroundShake: {
			Category: models.CategoryGroundShake,
			Success:  true,
		},
	}

	outcomes := loader.LoadResults(context.Background(), results)

	require.Len(t, outcomes, 1)
	require.Contains(t, outcomes, models.CategoryWholeFlower)
	assert.True(t, outcomes[models.CategoryWholeFlower].Success)
	require.Len(t, conn.calls, 1)
	assert.Equal(t, `"tl_scrape_whole_flower"`, conn.calls[0].table)
}
