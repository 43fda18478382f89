package render

import (
	"context"
	"fmt"
	"sync"
)

// FakeBrowser is an in-memory Browser for tests. Pages are served from a
// map of URL to FakeDoc; no real rendering happens.
type FakeBrowser struct {
	mu   sync.Mutex
	Docs map[string]*FakeDoc

	// NewPageErr, when set, fails every NewPage call.
	NewPageErr error

	OpenPages   int
	ClosedPages int
}

// FakeDoc is the queryable content behind one URL.
type FakeDoc struct {
	// Selectors maps a selector to the elements it yields.
	Selectors map[string][]*FakeElement
	// QueryFunc, when set, overrides Selectors entirely.
	QueryFunc func(selector string) []*FakeElement
	// ContentHTML is returned by Page.Content.
	ContentHTML string
	// NavigateErr fails navigation to this URL.
	NavigateErr error
}

func NewFakeBrowser() *FakeBrowser {
	return &FakeBrowser{Docs: make(map[string]*FakeDoc)}
}

func (b *FakeBrowser) AddDoc(url string, doc *FakeDoc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if doc.Selectors == nil {
		doc.Selectors = make(map[string][]*FakeElement)
	}
	b.Docs[url] = doc
}

func (b *FakeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	b.OpenPages++
	return &FakePage{browser: b}, nil
}

func (b *FakeBrowser) Close() error { return nil }

// FakePage implements Page against the browser's doc map.
type FakePage struct {
	browser *FakeBrowser
	URL     string
	Scrolls int
	closed  bool
}

func (p *FakePage) Navigate(ctx context.Context, url string, wait WaitState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.browser.mu.Lock()
	doc, ok := p.browser.Docs[url]
	p.browser.mu.Unlock()
	if !ok {
		return fmt.Errorf("fake: no doc registered for %s", url)
	}
	if doc.NavigateErr != nil {
		return doc.NavigateErr
	}
	p.URL = url
	return nil
}

func (p *FakePage) Query(selector string) ([]Element, error) {
	doc := p.doc()
	if doc == nil {
		return nil, fmt.Errorf("fake: no current document")
	}
	var fakes []*FakeElement
	if doc.QueryFunc != nil {
		fakes = doc.QueryFunc(selector)
	} else {
		fakes = doc.Selectors[selector]
	}
	elements := make([]Element, 0, len(fakes))
	for _, e := range fakes {
		elements = append(elements, e)
	}
	return elements, nil
}

func (p *FakePage) ScrollToBottom() error {
	p.Scrolls++
	return nil
}

func (p *FakePage) Content() (string, error) {
	doc := p.doc()
	if doc == nil {
		return "", fmt.Errorf("fake: no current document")
	}
	return doc.ContentHTML, nil
}

func (p *FakePage) Close() error {
	if !p.closed {
		p.closed = true
		p.browser.mu.Lock()
		p.browser.ClosedPages++
		p.browser.mu.Unlock()
	}
	return nil
}

func (p *FakePage) doc() *FakeDoc {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	return p.browser.Docs[p.URL]
}

// FakeElement implements Element from static fields.
type FakeElement struct {
	TextValue   string
	TextErr     error
	Attrs       map[string]string
	IsVisible   bool
	ClickErr    error
	Clicks      int
	OnClick     func()
	ContainerEl *FakeElement
	HTMLValue   string
}

func (e *FakeElement) Text() (string, error) {
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.TextValue, nil
}

func (e *FakeElement) Attribute(name string) (string, error) {
	v, ok := e.Attrs[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (e *FakeElement) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *FakeElement) Visible() (bool, error) { return e.IsVisible, nil }

func (e *FakeElement) Container() (Element, error) {
	if e.ContainerEl == nil {
		return nil, ErrNotFound
	}
	return e.ContainerEl, nil
}

func (e *FakeElement) HTML() (string, error) {
	return e.HTMLValue, nil
}
