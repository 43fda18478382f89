// Package models defines the records that flow through the scrape
// pipeline and the session/result aggregates the workflow reports.
package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Category is one of the fixed product categories the scraper targets.
type Category string

const (
	CategoryWholeFlower Category = "Whole Flower"
	CategoryPreRolls    Category = "Pre-Rolls"
	CategoryGroundShake Category = "Ground & Shake"
)

// Categories lists every valid category in stable order.
var Categories = []Category{CategoryWholeFlower, CategoryPreRolls, CategoryGroundShake}

// Valid reports whether c belongs to the fixed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Strain classifications accepted on a product. Anything else parsed
// from a page is normalized to absent, not rejected.
var validStrains = map[string]bool{
	"Indica": true,
	"Sativa": true,
	"Hybrid": true,
}

// Product is one scraped listing, immutable after construction.
type Product struct {
	Region     string    `json:"region"`
	Store      string    `json:"store"`
	Category   Category  `json:"category"`
	Name       string    `json:"name"`
	Brand      *string   `json:"brand,omitempty"`
	StrainType *string   `json:"strain_type,omitempty"`
	THCPct     *float64  `json:"thc_pct,omitempty"`
	SizeRaw    *string   `json:"size_raw,omitempty"`
	Grams      *float64  `json:"grams,omitempty"`
	Price      *float64  `json:"price,omitempty"`
	PricePerG  *float64  `json:"price_per_gram,omitempty"`
	URL        *string   `json:"url,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// ProductInput carries the raw parsed fields into NewProduct. Optional
// fields are pointers; NewProduct normalizes out-of-range values to nil.
type ProductInput struct {
	Region     string
	Store      string
	Category   Category
	Name       string
	Brand      *string
	StrainType *string
	THCPct     *float64
	SizeRaw    *string
	Grams      *float64
	Price      *float64
	URL        *string
}

// NewProduct validates and normalizes a parsed listing. The category is
// the only hard failure; every other suspect field degrades to absent.
func NewProduct(in ProductInput) (Product, error) {
	if !in.Category.Valid() {
		return Product{}, fmt.Errorf("invalid category %q", in.Category)
	}

	p := Product{
		Region:     in.Region,
		Store:      in.Store,
		Category:   in.Category,
		Name:       in.Name,
		Brand:      in.Brand,
		StrainType: in.StrainType,
		THCPct:     in.THCPct,
		SizeRaw:    in.SizeRaw,
		Grams:      in.Grams,
		Price:      in.Price,
		URL:        in.URL,
		CapturedAt: time.Now(),
	}

	if p.StrainType != nil && !validStrains[*p.StrainType] {
		p.StrainType = nil
	}
	if p.THCPct != nil && (*p.THCPct < 0 || *p.THCPct > 100) {
		p.THCPct = nil
	}
	if p.Grams != nil && *p.Grams <= 0 {
		p.Grams = nil
	}
	if p.Price != nil && *p.Price < 0 {
		p.Price = nil
	}
	if p.Price != nil && p.Grams != nil {
		ppg := math.Round(*p.Price / *p.Grams * 100) / 100
		p.PricePerG = &ppg
	}

	return p, nil
}

// DedupKey identifies a unique listing within one store/category pass.
type DedupKey struct {
	Store    string
	Slug     string
	Size     string
	Category Category
}

// CategoryResult aggregates every product captured for one category
// across all stores attempted in a run.
type CategoryResult struct {
	Category      Category      `json:"category"`
	Products      []Product     `json:"products"`
	StoreCount    int           `json:"store_count"`
	TotalProducts int           `json:"total_products"`
	Success       bool          `json:"success"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	Duration      time.Duration `json:"duration"`
	ScrapedAt     time.Time     `json:"scraped_at"`
}

// FailedCategoryResult builds the in-band failure value for a category
// whose scrape raised.
func FailedCategoryResult(category Category, errMsg string) *CategoryResult {
	return &CategoryResult{
		Category:     category,
		Success:      false,
		ErrorMessage: errMsg,
		ScrapedAt:    time.Now(),
	}
}

// Session aggregates category results for one workflow invocation.
type Session struct {
	ID            string                       `json:"session_id"`
	Results       map[Category]*CategoryResult `json:"results"`
	TotalProducts int                          `json:"total_products"`
	TotalStores   int                          `json:"total_stores"`
	Success       bool                         `json:"success"`
	StartTime     time.Time                    `json:"start_time"`
	EndTime       time.Time                    `json:"end_time"`
	Duration      time.Duration                `json:"duration"`
	Errors        []string                     `json:"errors,omitempty"`
}

// NewSession starts a session with a fresh identifier.
func NewSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		Results:   make(map[Category]*CategoryResult),
		Success:   true,
		StartTime: time.Now(),
	}
}

// AddResult records a category result, updating the running totals and
// the overall success flag.
func (s *Session) AddResult(r *CategoryResult) {
	s.Results[r.Category] = r
	s.TotalProducts += r.TotalProducts
	if !r.Success {
		s.Success = false
		if r.ErrorMessage != "" {
			s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", r.Category, r.ErrorMessage))
		}
	}
}

// Finalize stamps the end time, computes the duration, and counts the
// distinct store names across all captured products. The same store
// appearing in several categories counts once.
func (s *Session) Finalize() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	stores := make(map[string]struct{})
	for _, r := range s.Results {
		for _, p := range r.Products {
			stores[p.Store] = struct{}{}
		}
	}
	s.TotalStores = len(stores)
}

// InsertOutcome reports the result of loading one category's products.
type InsertOutcome struct {
	TableName    string        `json:"table_name"`
	Category     Category      `json:"category"`
	Success      bool          `json:"success"`
	RowsInserted int           `json:"rows_inserted"`
	RowsFailed   int           `json:"rows_failed"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Duration     time.Duration `json:"duration"`
	InsertedAt   time.Time     `json:"inserted_at"`
}
