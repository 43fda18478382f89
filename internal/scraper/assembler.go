package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/verdantdev/dispensary-scraper/internal/extract"
	"github.com/verdantdev/dispensary-scraper/internal/models"
	"github.com/verdantdev/dispensary-scraper/internal/render"
)

// Selectors probed inside a card's HTML before falling back to whole
// card text.
const (
	cardPriceSelector = ".price, [class*='price']"
	cardBrandSelector = ".ProductCard_brand, .brand, .c-product-card__brand, [class*='Brand'], [data-testid*='brand']"
	strainSelector    = "[class*='strain'], [class*='Strain'], [data-testid*='strain']"

	pdpBreadcrumbSelector = "nav a, .breadcrumb a, [class*='breadcrumb'] a"
	pdpBrandMetaSelector  = "[data-brand], [itemprop='brand'], [class*='brand']"
)

// Generic breadcrumb labels that are never a brand.
var breadcrumbStopwords = map[string]bool{
	"home":           true,
	"flower":         true,
	"pre-rolls":      true,
	"minis":          true,
	"ground & shake": true,
	"products":       true,
	"shop":           true,
}

// pdpInfo is what a detail-page fetch can recover for a listing.
type pdpInfo struct {
	price *float64
	brand *string
}

// pdpKey scopes cached detail-page results to one store's pass.
type pdpKey struct {
	store string
	url   string
}

// assembleProducts turns the discovered product anchors on the current
// page into normalized records, deduplicated within this store/category
// pass. Assembly is best-effort per item; a failing product is skipped.
func (s *Service) assembleProducts(ctx context.Context, page render.Page, storeName string, category models.Category) []models.Product {
	anchors, err := s.discoverProducts(page)
	if err != nil {
		s.logger.Warn("product discovery failed", "store", storeName, "error", err)
		return nil
	}

	seen := make(map[models.DedupKey]struct{})
	var products []models.Product

	for _, anchor := range anchors {
		product, key, err := s.assembleOne(ctx, anchor, storeName, category)
		if err != nil {
			s.logger.Debug("skipping product", "store", storeName, "error", err)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		products = append(products, product)
	}

	return products
}

func (s *Service) assembleOne(ctx context.Context, anchor render.Element, storeName string, category models.Category) (models.Product, models.DedupKey, error) {
	var key models.DedupKey

	rawName, err := anchor.Text()
	if err != nil {
		return models.Product{}, key, fmt.Errorf("failed to read product name: %w", err)
	}
	name := strings.Join(strings.Fields(rawName), " ")
	if name == "" {
		return models.Product{}, key, fmt.Errorf("empty product name")
	}

	href, _ := anchor.Attribute("href")
	productURL := s.absoluteURL(href)
	slug := extract.ProductSlug(href)

	cardText := name
	cardHTML := ""
	if card, err := anchor.Container(); err == nil {
		if t, err := card.Text(); err == nil && strings.TrimSpace(t) != "" {
			cardText = t
		}
		if h, err := card.HTML(); err == nil {
			cardHTML = h
		}
	}

	var sizeRaw *string
	var grams *float64
	size, _ := extract.Size(cardText)
	if size != "" {
		sizeRaw = &size
		if g, ok := extract.GramsFromSize(size); ok {
			grams = &g
		}
	}

	price := s.priceFromCard(cardHTML, cardText)
	brand := s.brandFromCard(cardHTML)

	// Card data is often incomplete; escalate to the product detail
	// page for whichever of price/brand is still missing.
	if (price == nil || brand == nil) && productURL != "" {
		info := s.fetchDetails(ctx, storeName, productURL)
		if price == nil {
			price = info.price
		}
		if brand == nil {
			brand = info.brand
		}
	}

	strain := s.strainFromCard(cardHTML, cardText)

	var thc *float64
	if v, ok := extract.THCPercent(cardText); ok {
		thc = &v
	}

	var urlPtr *string
	if productURL != "" {
		urlPtr = &productURL
	}

	key = models.DedupKey{Store: storeName, Slug: slug, Size: size, Category: category}

	product, err := models.NewProduct(models.ProductInput{
		Region:     s.cfg.Site.Region,
		Store:      storeName,
		Category:   category,
		Name:       name,
		Brand:      brand,
		StrainType: strain,
		THCPct:     thc,
		SizeRaw:    sizeRaw,
		Grams:      grams,
		Price:      price,
		URL:        urlPtr,
	})
	if err != nil {
		return models.Product{}, key, err
	}
	return product, key, nil
}

// priceFromCard prefers price-labeled sub-elements (up to four, enough
// to catch sale/regular pairs) and falls back to the whole card text,
// taking the minimum dollar amount either way.
func (s *Service) priceFromCard(cardHTML, cardText string) *float64 {
	blob := cardText
	if cardHTML != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(cardHTML)); err == nil {
			var texts []string
			doc.Find(cardPriceSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
				if i >= 4 {
					return false
				}
				t := strings.TrimSpace(sel.Text())
				if strings.Contains(t, "$") {
					texts = append(texts, t)
				}
				return true
			})
			if len(texts) > 0 {
				blob = strings.Join(texts, " ")
			}
		}
	}
	if v, ok := extract.MinPrice(blob); ok {
		return &v
	}
	return nil
}

func (s *Service) brandFromCard(cardHTML string) *string {
	if cardHTML == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cardHTML))
	if err != nil {
		return nil
	}
	text := strings.TrimSpace(doc.Find(cardBrandSelector).First().Text())
	if text == "" {
		return nil
	}
	return &text
}

func (s *Service) strainFromCard(cardHTML, cardText string) *string {
	if cardHTML != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(cardHTML)); err == nil {
			labeled := strings.TrimSpace(doc.Find(strainSelector).First().Text())
			if v, ok := extract.StrainType(labeled); ok {
				return &v
			}
		}
	}
	if v, ok := extract.StrainType(cardText); ok {
		return &v
	}
	return nil
}

// fetchDetails opens the product detail page in a transient page,
// extracts price and brand, and always closes the page. Results are
// cached per store and URL; a price seen while another store was
// selected must not carry over.
func (s *Service) fetchDetails(ctx context.Context, storeName, productURL string) pdpInfo {
	key := pdpKey{store: storeName, url: productURL}
	if cached, ok := s.pdpCache.Get(key); ok {
		return cached
	}

	var info pdpInfo

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return info
	}
	defer page.Close()

	if err := page.Navigate(ctx, productURL, render.WaitDOMContentLoaded); err != nil {
		return info
	}
	html, err := page.Content()
	if err != nil {
		return info
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return info
	}

	s.metrics.IncPDPFetch()

	bodyText := doc.Find("body").Text()
	if bodyText == "" {
		bodyText = doc.Text()
	}

	if v, ok := extract.MinPrice(bodyText); ok {
		info.price = &v
	}
	info.brand = brandFromPDP(doc, bodyText)

	s.pdpCache.Add(key, info)
	return info
}

// brandFromPDP escalates through breadcrumbs, a labeled "Brand:" line,
// brand-attributed elements, and finally the body text.
func brandFromPDP(doc *goquery.Document, bodyText string) *string {
	var crumb string
	doc.Find(pdpBreadcrumbSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= 5 {
			return false
		}
		t := strings.TrimSpace(sel.Text())
		if t == "" || breadcrumbStopwords[strings.ToLower(t)] {
			return true
		}
		if len(t) >= 1 && len(t) <= 40 {
			crumb = t
			return false
		}
		return true
	})
	if crumb != "" {
		return &crumb
	}

	if b, ok := extract.BrandFromLabel(bodyText); ok {
		return &b
	}

	meta := strings.TrimSpace(doc.Find(pdpBrandMetaSelector).First().Text())
	if meta != "" {
		return &meta
	}
	return nil
}
