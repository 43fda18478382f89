// Package api exposes the scrape workflow over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/verdantdev/dispensary-scraper/internal/models"
	"github.com/verdantdev/dispensary-scraper/internal/scraper"
)

type Handlers struct {
	service   *scraper.Service
	loader    scraper.ResultLoader
	publisher scraper.SessionPublisher
	logger    *slog.Logger
}

func NewHandlers(service *scraper.Service, loader scraper.ResultLoader, publisher scraper.SessionPublisher, logger *slog.Logger) *Handlers {
	return &Handlers{
		service:   service,
		loader:    loader,
		publisher: publisher,
		logger:    logger.With("component", "api"),
	}
}

// ScrapeRequest triggers a workflow run.
type ScrapeRequest struct {
	MaxStores  int      `json:"max_stores"`
	Categories []string `json:"categories"`
	Persist    bool     `json:"persist"`
}

// RunScrape executes the full workflow synchronously and returns the
// session. Scrape-phase failures surface inside the session, not as
// HTTP errors.
func (h *Handlers) RunScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var subset []models.Category
	for _, name := range req.Categories {
		category := models.Category(name)
		if !category.Valid() {
			h.respondError(w, http.StatusBadRequest, "unknown category: "+name)
			return
		}
		subset = append(subset, category)
	}

	h.logger.Info("scrape run requested",
		"max_stores", req.MaxStores,
		"categories", len(subset),
		"persist", req.Persist,
	)

	session := h.service.RunWorkflow(r.Context(), scraper.WorkflowOptions{
		MaxStores:  req.MaxStores,
		Categories: subset,
		Persist:    req.Persist,
	}, h.loader, h.publisher)

	h.respondJSON(w, http.StatusOK, session)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
