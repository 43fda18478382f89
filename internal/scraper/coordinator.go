package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/verdantdev/dispensary-scraper/internal/models"
)

// ResultLoader persists scraped results. Implemented by database.Loader.
type ResultLoader interface {
	LoadResults(ctx context.Context, results map[models.Category]*models.CategoryResult) map[models.Category]*models.InsertOutcome
}

// SessionPublisher emits session lifecycle events. Implemented by
// events.Publisher.
type SessionPublisher interface {
	PublishSessionCompleted(ctx context.Context, session *models.Session) error
}

// WorkflowOptions tunes one workflow invocation.
type WorkflowOptions struct {
	MaxStores  int
	Categories []models.Category
	Persist    bool
}

// ScrapeAllCategories runs one ScrapeCategory task per category
// concurrently and collects the results. A panic or failure in one
// category becomes a failed CategoryResult for that category alone.
func (s *Service) ScrapeAllCategories(ctx context.Context, maxStores int, subset []models.Category) map[models.Category]*models.CategoryResult {
	selected := selectCategories(subset)
	s.logger.Info("starting parallel category scrape", "categories", len(selected))

	results := make(map[models.Category]*models.CategoryResult, len(selected))
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Missing-URL failures are recorded before any goroutine starts so
	// the map never sees a writer outside the mutex.
	var pending []models.Category
	for _, category := range selected {
		if _, ok := s.cfg.Site.CategoryURLs[category]; !ok {
			results[category] = models.FailedCategoryResult(category, "no category URL configured")
			continue
		}
		pending = append(pending, category)
	}

	for _, category := range pending {
		categoryURL := s.cfg.Site.CategoryURLs[category]

		wg.Add(1)
		go func(category models.Category, categoryURL string) {
			defer wg.Done()
			result := s.scrapeCategorySafe(ctx, category, categoryURL, maxStores)
			mu.Lock()
			results[category] = result
			mu.Unlock()
		}(category, categoryURL)
	}

	wg.Wait()
	return results
}

// scrapeCategorySafe converts a panicking category task into an in-band
// failure value so one category can never take down its siblings.
func (s *Service) scrapeCategorySafe(ctx context.Context, category models.Category, categoryURL string, maxStores int) (result *models.CategoryResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("category scrape panicked", "category", string(category), "panic", r)
			result = models.FailedCategoryResult(category, fmt.Sprintf("panic: %v", r))
		}
	}()
	return s.ScrapeCategory(ctx, category, categoryURL, maxStores)
}

// RunWorkflow is the top-level entry point: scrape all categories,
// optionally persist, and always return a finalized session. Scrape
// phase problems accumulate as session errors instead of raising.
func (s *Service) RunWorkflow(ctx context.Context, opts WorkflowOptions, loader ResultLoader, publisher SessionPublisher) *models.Session {
	session := models.NewSession()
	s.logger.Info("starting scrape workflow", "session_id", session.ID)

	results := s.ScrapeAllCategories(ctx, opts.MaxStores, opts.Categories)
	for _, category := range models.Categories {
		if result, ok := results[category]; ok {
			session.AddResult(result)
		}
	}

	if opts.Persist {
		if loader == nil {
			session.Errors = append(session.Errors, "persistence requested but no data store configured")
		} else {
			outcomes := loader.LoadResults(ctx, results)
			for _, outcome := range outcomes {
				if !outcome.Success {
					session.Errors = append(session.Errors,
						fmt.Sprintf("insert failed for %s: %s", outcome.Category, outcome.ErrorMessage))
				}
			}
		}
	}

	session.Finalize()

	if publisher != nil {
		if err := publisher.PublishSessionCompleted(ctx, session); err != nil {
			s.logger.Warn("failed to publish session event", "error", err)
		}
	}

	s.logger.Info("workflow completed",
		"session_id", session.ID,
		"products", session.TotalProducts,
		"stores", session.TotalStores,
		"success", session.Success,
		"duration", session.Duration,
	)
	return session
}

func selectCategories(subset []models.Category) []models.Category {
	if len(subset) == 0 {
		return models.Categories
	}
	requested := make(map[models.Category]bool, len(subset))
	for _, c := range subset {
		requested[c] = true
	}
	var selected []models.Category
	for _, c := range models.Categories {
		if requested[c] {
			selected = append(selected, c)
		}
	}
	return selected
}
