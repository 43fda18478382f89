package render

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Options configures the Playwright-backed browser.
type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
}

// PlaywrightBrowser implements Browser on top of a Chromium context.
type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
}

// NewPlaywrightBrowser starts Playwright and opens a browsing context.
func NewPlaywrightBrowser(opts *Options) (*PlaywrightBrowser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &PlaywrightBrowser{
		pw:      pw,
		browser: browser,
		context: context,
		timeout: opts.Timeout,
	}, nil
}

func (b *PlaywrightBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(b.timeout.Milliseconds()))
	return &playwrightPage{page: page, timeout: b.timeout}, nil
}

func (b *PlaywrightBrowser) Close() error {
	var errs []error
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

type playwrightPage struct {
	page    playwright.Page
	timeout time.Duration
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, wait WaitState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var state *playwright.WaitUntilState
	switch wait {
	case WaitDOMContentLoaded:
		state = playwright.WaitUntilStateDomcontentloaded
	case WaitNetworkIdle:
		state = playwright.WaitUntilStateNetworkidle
	default:
		state = playwright.WaitUntilStateLoad
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: state,
		Timeout:   playwright.Float(float64(p.timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) Query(selector string) ([]Element, error) {
	locators, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	elements := make([]Element, 0, len(locators))
	for _, loc := range locators {
		elements = append(elements, &playwrightElement{loc: loc})
	}
	return elements, nil
}

func (p *playwrightPage) ScrollToBottom() error {
	return p.page.Mouse().Wheel(0, 40000)
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Text() (string, error) {
	return e.loc.InnerText()
}

func (e *playwrightElement) Attribute(name string) (string, error) {
	value, err := e.loc.GetAttribute(name)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

func (e *playwrightElement) Click() error {
	return e.loc.Click()
}

func (e *playwrightElement) Visible() (bool, error) {
	return e.loc.IsVisible()
}

func (e *playwrightElement) Container() (Element, error) {
	ancestor := e.loc.Locator("xpath=ancestor::*[self::article or self::li or self::div][1]")
	count, err := ancestor.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return &playwrightElement{loc: ancestor.First()}, nil
}

func (e *playwrightElement) HTML() (string, error) {
	return e.loc.InnerHTML()
}
