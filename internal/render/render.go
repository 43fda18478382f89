// Package render abstracts the page-rendering capability the scraper
// depends on: navigate, query, read, click, scroll. The production
// implementation drives Playwright; tests use the in-memory fake.
package render

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a queried element or ancestor does not
// exist on the rendered page.
var ErrNotFound = errors.New("render: element not found")

// WaitState selects the navigation wait condition.
type WaitState string

const (
	WaitLoad             WaitState = "load"
	WaitDOMContentLoaded WaitState = "domcontentloaded"
	WaitNetworkIdle      WaitState = "networkidle"
)

// Element is a handle to one rendered DOM element.
type Element interface {
	// Text returns the element's visible text.
	Text() (string, error)
	// Attribute returns the named attribute, or ErrNotFound if absent.
	Attribute(name string) (string, error)
	// Click clicks the element.
	Click() error
	// Visible reports whether the element is currently visible.
	Visible() (bool, error)
	// Container returns the nearest ancestor that represents a listing
	// card (article, li, or div), or ErrNotFound.
	Container() (Element, error)
	// HTML returns the element's inner HTML.
	HTML() (string, error)
}

// Page is one browsing page within a context.
type Page interface {
	Navigate(ctx context.Context, url string, wait WaitState) error
	// Query returns every element matching the selector, in document
	// order. An empty result is not an error.
	Query(selector string) ([]Element, error)
	// ScrollToBottom scrolls the viewport down by a large delta.
	ScrollToBottom() error
	// Content returns the full page HTML.
	Content() (string, error)
	Close() error
}

// Browser owns a browsing context and hands out pages. The scrape
// orchestrator borrows a Browser; it never owns the underlying engine.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}
