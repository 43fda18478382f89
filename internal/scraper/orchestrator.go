package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/verdantdev/dispensary-scraper/internal/models"
	"github.com/verdantdev/dispensary-scraper/internal/render"
)

// ScrapeCategory scrapes one category across every in-region store,
// sequentially. Sequential store order is deliberate pacing: only the
// category fan-out runs concurrently, so total load on the site is
// bounded by the category count. A failing store is logged and skipped;
// it never aborts the category.
func (s *Service) ScrapeCategory(ctx context.Context, category models.Category, categoryURL string, maxStores int) *models.CategoryResult {
	start := time.Now()
	logger := s.logger.With("category", string(category))

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return models.FailedCategoryResult(category, fmt.Sprintf("failed to open page: %v", err))
	}
	defer page.Close()

	stores, err := s.LocateRegionStores(ctx, page)
	if err != nil {
		return models.FailedCategoryResult(category, fmt.Sprintf("store extraction failed: %v", err))
	}
	if maxStores > 0 && len(stores) > maxStores {
		stores = stores[:maxStores]
	}
	logger.Info("scraping category", "stores", len(stores))

	var products []models.Product
	successfulStores := 0

	for _, store := range stores {
		if ctx.Err() != nil {
			break
		}
		batch, err := s.scrapeStoreCategory(ctx, page, store, category, categoryURL)
		if err != nil {
			logger.Warn("store scrape failed", "store", store.Name, "error", err)
			s.metrics.IncStoreFailure(string(category))
			continue
		}
		products = append(products, batch...)
		successfulStores++
		logger.Debug("store scraped", "store", store.Name, "products", len(batch))
	}

	duration := time.Since(start)
	result := &models.CategoryResult{
		Category:      category,
		Products:      products,
		StoreCount:    successfulStores,
		TotalProducts: len(products),
		Success:       len(products) > 0,
		Duration:      duration,
		ScrapedAt:     time.Now(),
	}
	if !result.Success {
		result.ErrorMessage = fmt.Sprintf("no products found for %s", category)
	}

	s.metrics.AddProducts(string(category), len(products))
	s.metrics.ObserveCategoryDuration(string(category), duration)

	logger.Info("category completed",
		"products", result.TotalProducts,
		"stores", result.StoreCount,
		"duration", duration,
	)
	return result
}

func (s *Service) scrapeStoreCategory(ctx context.Context, page render.Page, store Store, category models.Category, categoryURL string) ([]models.Product, error) {
	s.pause(s.cfg.Scraper.MinDelay, s.cfg.Scraper.MaxDelay)

	if err := page.Navigate(ctx, store.URL, render.WaitDOMContentLoaded); err != nil {
		return nil, fmt.Errorf("failed to open store page: %w", err)
	}
	s.selectStore(page)

	if err := page.Navigate(ctx, categoryURL, render.WaitDOMContentLoaded); err != nil {
		return nil, fmt.Errorf("failed to open category page: %w", err)
	}
	if err := s.loadAll(ctx, page); err != nil {
		return nil, err
	}

	return s.assembleProducts(ctx, page, store.Name, category), nil
}

// selectStore clicks the "shop at this store" control when present.
// Best-effort: some store pages do not show it.
func (s *Service) selectStore(page render.Page) {
	buttons, err := page.Query(storeSelectSelector)
	if err != nil || len(buttons) == 0 {
		return
	}
	if err := buttons[0].Click(); err != nil {
		return
	}
	s.pause(storeSelectPauseMin, storeSelectPauseMax)
}
