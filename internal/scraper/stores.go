package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/verdantdev/dispensary-scraper/internal/extract"
	"github.com/verdantdev/dispensary-scraper/internal/render"
)

// Store is one dispensary location discovered on the directory page.
type Store struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LocateRegionStores navigates to the store directory and returns the
// in-region stores in document order, deduplicated first by href and
// then by display name. Per-element read errors skip that element.
func (s *Service) LocateRegionStores(ctx context.Context, page render.Page) ([]Store, error) {
	if err := page.Navigate(ctx, s.cfg.Site.DirectoryURL, render.WaitNetworkIdle); err != nil {
		return nil, fmt.Errorf("failed to open store directory: %w", err)
	}

	anchors, err := page.Query(storeLinkSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate store links: %w", err)
	}

	type candidate struct {
		name string
		url  string
	}
	var candidates []candidate
	seenHrefs := make(map[string]struct{})

	for _, anchor := range anchors {
		href, err := anchor.Attribute("href")
		if err != nil || !strings.Contains(href, "/dispensaries/") {
			continue
		}
		text, err := anchor.Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)

		if _, dup := seenHrefs[href]; dup {
			continue
		}
		if !extract.LooksLikeFlorida(href, text) {
			continue
		}
		seenHrefs[href] = struct{}{}
		candidates = append(candidates, candidate{
			name: strings.Join(strings.Fields(text), " "),
			url:  s.absoluteURL(href),
		})
	}

	// Name dedup runs after the href pass so two URLs resolving to the
	// same visible store collapse to one entry.
	var stores []Store
	seenNames := make(map[string]struct{})
	for _, c := range candidates {
		if _, dup := seenNames[c.name]; dup {
			continue
		}
		seenNames[c.name] = struct{}{}
		stores = append(stores, Store{Name: c.name, URL: c.url})
	}

	s.logger.Info("located region stores", "region", s.cfg.Site.Region, "count", len(stores))
	return stores, nil
}
