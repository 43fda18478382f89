package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantdev/dispensary-scraper/internal/config"
	"github.com/verdantdev/dispensary-scraper/internal/models"
	"github.com/verdantdev/dispensary-scraper/internal/render"
	"github.com/verdantdev/dispensary-scraper/internal/scraper"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	base := "https://example.test"
	cfg := &config.Config{
		Site: config.SiteConfig{
			BaseURL:      base,
			DirectoryURL: base + "/dispensaries",
			Region:       "FL",
			CategoryURLs: map[models.Category]string{
				models.CategoryWholeFlower: base + "/category/flower/whole-flower",
				models.CategoryPreRolls:    base + "/category/flower/pre-rolls",
				models.CategoryGroundShake: base + "/category/flower/ground-shake",
			},
		},
		Scraper: config.ScraperConfig{MaxLoadMoreRounds: 1},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service, err := scraper.NewService(cfg, render.NewFakeBrowser(), logger, nil)
	require.NoError(t, err)
	return NewHandlers(service, nil, nil, logger)
}

func TestHealth(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()

	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunScrapeRejectsUnknownCategory(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape",
		strings.NewReader(`{"categories":["Edibles"]}`))

	h.RunScrape(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown category")
}

func TestRunScrapeRejectsMalformedBody(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", strings.NewReader(`{`))

	h.RunScrape(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunScrapeReturnsSession(t *testing.T) {
	h := newTestHandlers(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape",
		strings.NewReader(`{"categories":["Whole Flower"]}`))

	h.RunScrape(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var session models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.NotEmpty(t, session.ID)
	// The fake browser serves no pages, so the run fails in-band.
	assert.False(t, session.Success)
	require.Contains(t, session.Results, models.CategoryWholeFlower)
}
