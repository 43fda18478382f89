package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scrape pipeline.
type Metrics struct {
	Registry         *prometheus.Registry
	ProductsScraped  *prometheus.CounterVec
	StoreFailures    *prometheus.CounterVec
	CategoryDuration *prometheus.HistogramVec
	PDPFetches       prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	products := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_products_scraped_total",
			Help: "Total products captured, by category.",
		},
		[]string{"category"},
	)
	storeFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_store_failures_total",
			Help: "Stores skipped due to scrape errors, by category.",
		},
		[]string{"category"},
	)
	categoryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_category_duration_seconds",
			Help:    "Wall time per category scrape.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"category"},
	)
	pdpFetches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pdp_fetches_total",
			Help: "Product detail pages fetched for missing card fields.",
		},
	)

	registry.MustRegister(products, storeFailures, categoryDuration, pdpFetches)

	return &Metrics{
		Registry:         registry,
		ProductsScraped:  products,
		StoreFailures:    storeFailures,
		CategoryDuration: categoryDuration,
		PDPFetches:       pdpFetches,
	}
}

func (m *Metrics) AddProducts(category string, n int) {
	if m == nil {
		return
	}
	m.ProductsScraped.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) IncStoreFailure(category string) {
	if m == nil {
		return
	}
	m.StoreFailures.WithLabelValues(category).Inc()
}

func (m *Metrics) ObserveCategoryDuration(category string, d time.Duration) {
	if m == nil {
		return
	}
	m.CategoryDuration.WithLabelValues(category).Observe(d.Seconds())
}

func (m *Metrics) IncPDPFetch() {
	if m == nil {
		return
	}
	m.PDPFetches.Inc()
}
