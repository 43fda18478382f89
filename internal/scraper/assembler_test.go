package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantdev/dispensary-scraper/internal/models"
	"github.com/verdantdev/dispensary-scraper/internal/render"
)

func productAnchor(name, href string, card *render.FakeElement) *render.FakeElement {
	return &render.FakeElement{
		TextValue:   name,
		Attrs:       map[string]string{"href": href},
		ContainerEl: card,
	}
}

func TestAssembleProductsFromCard(t *testing.T) {
	card := &render.FakeElement{
		TextValue: "Blue Dream 3.5g THC 21.5% Hybrid $45.00 $35.00",
		HTMLValue: `<div><span class="brand">Sunshine Cannabis</span>` +
			`<span class="price">$45.00</span><span class="price sale">$35.00</span></div>`,
	}
	browser := render.NewFakeBrowser()
	page := categoryPage(t, browser, &render.FakeDoc{
		Selectors: map[string][]*render.FakeElement{
			productLinkSelector: {
				productAnchor("Blue  Dream", "/product/blue-dream?store=1", card),
			},
		},
	})
	svc := newTestService(t, testConfig(), browser)

	products := svc.assembleProducts(context.Background(), page, "Miami, FL", models.CategoryWholeFlower)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "FL", p.Region)
	assert.Equal(t, "Miami, FL", p.Store)
	assert.Equal(t, models.CategoryWholeFlower, p.Category)
	assert.Equal(t, "Blue Dream", p.Name)
	require.NotNil(t, p.Brand)
	assert.Equal(t, "Sunshine Cannabis", *p.Brand)
	require.NotNil(t, p.StrainType)
	assert.Equal(t, "Hybrid", *p.StrainType)
	require.NotNil(t, p.THCPct)
	assert.Equal(t, 21.5, *p.THCPct)
	require.NotNil(t, p.SizeRaw)
	assert.Equal(t, "3.5g", *p.SizeRaw)
	require.NotNil(t, p.Grams)
	assert.Equal(t, 3.5, *p.Grams)
	require.NotNil(t, p.Price)
	assert.Equal(t, 35.0, *p.Price)
	require.NotNil(t, p.PricePerG)
	assert.Equal(t, 10.0, *p.PricePerG)
	require.NotNil(t, p.URL)
	assert.Equal(t, testBaseURL+"/product/blue-dream?store=1", *p.URL)
}

func TestAssembleProductsDeduplicates(t *testing.T) {
	card := func(size string) *render.FakeElement {
		return &render.FakeElement{
			TextValue: "Blue Dream " + size + " $35.00",
			HTMLValue: `<div><span class="brand">Sunshine Cannabis</span><span class="price">$35.00</span></div>`,
		}
	}
	browser := render.NewFakeBrowser()
	page := categoryPage(t, browser, &render.FakeDoc{
		Selectors: map[string][]*render.FakeElement{
			productLinkSelector: {
				productAnchor("Blue Dream", "/product/blue-dream", card("3.5g")),
				productAnchor("Blue Dream", "/product/blue-dream", card("3.5g")),
				productAnchor("Blue Dream", "/product/blue-dream", card("7g")),
			},
		},
	})
	svc := newTestService(t, testConfig(), browser)

	products := svc.assembleProducts(context.Background(), page, "Miami, FL", models.CategoryWholeFlower)

	// Same slug at the same size collapses; a different size survives.
	require.Len(t, products, 2)
	assert.Equal(t, "3.5g", *products[0].SizeRaw)
	assert.Equal(t, "7g", *products[1].SizeRaw)
}

func TestAssembleProductsSkipsNamelessAnchors(t *testing.T) {
	browser := render.NewFakeBrowser()
	page := categoryPage(t, browser, &render.FakeDoc{
		Selectors: map[string][]*render.FakeElement{
			productLinkSelector: {
				{TextValue: "   ", Attrs: map[string]string{"href": "/product/ghost"}},
			},
		},
	})
	svc := newTestService(t, testConfig(), browser)

	products := svc.assembleProducts(context.Background(), page, "Miami, FL", models.CategoryWholeFlower)
	assert.Empty(t, products)
}

func TestAssembleProductsDetailPageFallback(t *testing.T) {
	card := func(size string) *render.FakeElement {
		return &render.FakeElement{TextValue: "OG Kush " + size}
	}
	browser := render.NewFakeBrowser()
	browser.AddDoc(testBaseURL+"/product/og-kush", &render.FakeDoc{
		ContentHTML: `<html><body>` +
			`<nav><a>Home</a><a>Flower</a><a>Cookies Co</a></nav>` +
			`<div>OG Kush $28.00</div>` +
			`</body></html>`,
	})
	page := categoryPage(t, browser, &render.FakeDoc{
		Selectors: map[string][]*render.FakeElement{
			productLinkSelector: {
				productAnchor("OG Kush", "/product/og-kush", card("3.5g")),
				productAnchor("OG Kush", "/product/og-kush", card("7g")),
			},
		},
	})
	svc := newTestService(t, testConfig(), browser)

	products := svc.assembleProducts(context.Background(), page, "Miami, FL", models.CategoryWholeFlower)
	require.Len(t, products, 2)

	for _, p := range products {
		require.NotNil(t, p.Price)
		assert.Equal(t, 28.0, *p.Price)
		require.NotNil(t, p.Brand)
		assert.Equal(t, "Cookies Co", *p.Brand)
	}

	// One transient detail page for both listings, and it was closed.
	assert.Equal(t, 2, browser.OpenPages)
	assert.Equal(t, 1, browser.ClosedPages)
}

func TestAssembleProductsDetailPageUnreachable(t *testing.T) {
	card := &render.FakeElement{TextValue: "OG Kush 3.5g"}
	browser := render.NewFakeBrowser()
	page := categoryPage(t, browser, &render.FakeDoc{
		Selectors: map[string][]*render.FakeElement{
			productLinkSelector: {
				productAnchor("OG Kush", "/product/og-kush", card),
			},
		},
	})
	svc := newTestService(t, testConfig(), browser)

	products := svc.assembleProducts(context.Background(), page, "Miami, FL", models.CategoryWholeFlower)

	// Product survives with price and brand absent.
	require.Len(t, products, 1)
	assert.Nil(t, products[0].Price)
	assert.Nil(t, products[0].Brand)
}

func TestFetchDetailsCachedPerStore(t *testing.T) {
	browser := render.NewFakeBrowser()
	url := testBaseURL + "/product/og-kush"
	browser.AddDoc(url, &render.FakeDoc{
		ContentHTML: `<html><body><nav><a>Home</a><a>Cookies Co</a></nav><div>$28.00</div></body></html>`,
	})
	svc := newTestService(t, testConfig(), browser)

	info := svc.fetchDetails(context.Background(), "Miami, FL", url)
	require.NotNil(t, info.price)
	assert.Equal(t, 28.0, *info.price)

	// Same store hits the cache; another store fetches fresh since the
	// selected store changes the prices a page shows.
	svc.fetchDetails(context.Background(), "Miami, FL", url)
	assert.Equal(t, 1, browser.OpenPages)

	svc.fetchDetails(context.Background(), "Tampa, FL", url)
	assert.Equal(t, 2, browser.OpenPages)
}

func TestBrandFromPDPLabeledLine(t *testing.T) {
	browser := render.NewFakeBrowser()
	browser.AddDoc(testBaseURL+"/product/sunset", &render.FakeDoc{
		ContentHTML: `<html><body>` +
			`<nav><a>Home</a><a>Flower</a></nav>` +
			`<div>Sunset Sherbet</div><div>$22.00</div><div>Brand: Muse</div>` +
			`</body></html>`,
	})
	svc := newTestService(t, testConfig(), browser)

	info := svc.fetchDetails(context.Background(), "Miami, FL", testBaseURL+"/product/sunset")
	require.NotNil(t, info.brand)
	assert.Equal(t, "Muse", *info.brand)
	require.NotNil(t, info.price)
	assert.Equal(t, 22.0, *info.price)
}
