// Package scraper implements the extraction pipeline: store discovery,
// category page walking, product assembly, and the per-category and
// cross-category orchestration.
package scraper

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/verdantdev/dispensary-scraper/internal/config"
	"github.com/verdantdev/dispensary-scraper/internal/render"
)

const (
	storeLinkSelector   = "a[href^='/dispensaries/']"
	productLinkSelector = "a[href*='/product/']:not(:has(img))"
	loadMoreSelector    = `button:has-text("Load More")`
	storeSelectSelector = `button:has-text("Shop At This Store")`
)

// Pacing windows between page interactions. These are per-request
// politeness delays against the target site, not retry backoffs.
const (
	scrollPauseMin      = 800 * time.Millisecond
	scrollPauseMax      = 1400 * time.Millisecond
	loadMorePauseMin    = 1000 * time.Millisecond
	loadMorePauseMax    = 1600 * time.Millisecond
	storeSelectPauseMin = 900 * time.Millisecond
	storeSelectPauseMax = 1400 * time.Millisecond
)

const pdpCacheSize = 512

// Service drives the scrape against a rendering capability. It borrows
// the browser; callers own its lifecycle.
type Service struct {
	cfg     *config.Config
	browser render.Browser
	logger  *slog.Logger
	metrics *Metrics
	baseURL *url.URL

	// pdpCache remembers detail-page extraction results so a product
	// listed many times on one store's pages is fetched once. Keyed per
	// store because the selected store changes the prices a page shows.
	pdpCache *lru.Cache[pdpKey, pdpInfo]

	// pause sleeps a random duration in [min,max]; overridden in tests.
	pause func(min, max time.Duration)
}

func NewService(cfg *config.Config, browser render.Browser, logger *slog.Logger, metrics *Metrics) (*Service, error) {
	base, err := url.Parse(cfg.Site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	cache, err := lru.New[pdpKey, pdpInfo](pdpCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create detail-page cache: %w", err)
	}

	return &Service{
		cfg:      cfg,
		browser:  browser,
		logger:   logger.With("component", "scraper"),
		metrics:  metrics,
		baseURL:  base,
		pdpCache: cache,
		pause:    randomPause,
	}, nil
}

func randomPause(min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	time.Sleep(d)
}

// absoluteURL resolves href against the site base.
func (s *Service) absoluteURL(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return s.baseURL.ResolveReference(ref).String()
}
