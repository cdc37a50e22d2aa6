package browser

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go-bosszp-automation/internal/intercept"
	"go-bosszp-automation/internal/scraper"

	"github.com/playwright-community/playwright-go"
)

// Page adapts a playwright tab to scraper.Page.
type Page struct {
	page           playwright.Page
	context        playwright.BrowserContext
	screenshotDir  string
	navTimeout     time.Duration
	loadingTimeout time.Duration
}

type PageOptions struct {
	ScreenshotDir string
	// NavTimeout bounds Goto and clicks. Zero keeps the playwright default.
	NavTimeout time.Duration
	// LoadTimeout bounds WaitForLoadState.
	LoadTimeout time.Duration
}

// NewPage opens a tab in ctx.
func NewPage(ctx playwright.BrowserContext, opts PageOptions) (*Page, error) {
	page, err := ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	if opts.ScreenshotDir != "" {
		if err := os.MkdirAll(opts.ScreenshotDir, 0755); err != nil {
			log.Printf("⚠️ Failed to create screenshot dir: %v", err)
		}
	}
	return &Page{
		page:           page,
		context:        ctx,
		screenshotDir:  opts.ScreenshotDir,
		navTimeout:     opts.NavTimeout,
		loadingTimeout: opts.LoadTimeout,
	}, nil
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func (p *Page) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   millis(p.navTimeout),
	})
	return err
}

func (p *Page) URL() string {
	return p.page.URL()
}

func (p *Page) IsClosed() bool {
	return p.page.IsClosed()
}

func (p *Page) Evaluate(script string) (any, error) {
	return p.page.Evaluate(script)
}

func (p *Page) WaitForLoadState(state scraper.LoadState) error {
	opts := playwright.PageWaitForLoadStateOptions{Timeout: millis(p.loadingTimeout)}
	switch state {
	case scraper.LoadStateNetworkIdle:
		opts.State = playwright.LoadStateNetworkidle
	default:
		opts.State = playwright.LoadStateLoad
	}
	return p.page.WaitForLoadState(opts)
}

func (p *Page) Locate(selector string) ([]scraper.Element, error) {
	locators, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	elements := make([]scraper.Element, len(locators))
	for i, l := range locators {
		elements[i] = &element{locator: l, timeout: p.navTimeout}
	}
	return elements, nil
}

// Route binds an intercept.Handler to every request matching the glob pattern.
func (p *Page) Route(pattern string, handler intercept.Handler) error {
	return p.page.Route(pattern, func(route playwright.Route) {
		req := intercept.Request{URL: route.Request().URL()}
		fetch := func() (*intercept.Response, error) {
			resp, err := route.Fetch()
			if err != nil {
				return nil, err
			}
			body, err := resp.Body()
			if err != nil {
				return nil, err
			}
			return &intercept.Response{
				Status:  resp.Status(),
				Headers: resp.Headers(),
				Body:    body,
			}, nil
		}

		decision := handler(req, fetch)
		if decision.Action == intercept.Fulfill && decision.Response != nil {
			err := route.Fulfill(playwright.RouteFulfillOptions{
				Status:  playwright.Int(decision.Response.Status),
				Headers: decision.Response.Headers,
				Body:    decision.Response.Body,
			})
			if err != nil {
				log.Printf("⚠️ Fulfill failed for %s: %v", req.URL, err)
			}
			return
		}
		if err := route.Continue(); err != nil {
			log.Printf("⚠️ Continue failed for %s: %v", req.URL, err)
		}
	})
}

// CaptureAndLog saves a full-page screenshot named after name and the current time.
func (p *Page) CaptureAndLog(name, message string) error {
	log.Printf("📸 %s", message)
	if p.screenshotDir == "" {
		return nil
	}
	filename := fmt.Sprintf("%s_%s.png", name, time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(p.screenshotDir, filename)

	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		log.Printf("⚠️ Failed to capture screenshot: %v", err)
		return err
	}

	log.Printf("   Screenshot saved: %s", path)
	return nil
}

// SaveStorageState writes cookies and local storage of the tab's context to path.
func (p *Page) SaveStorageState(path string) error {
	if _, err := p.context.StorageState(path); err != nil {
		return fmt.Errorf("save storage state: %w", err)
	}
	return nil
}

func (p *Page) Close() error {
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}

type element struct {
	locator playwright.Locator
	timeout time.Duration
}

func (e *element) Click() error {
	return e.locator.Click(playwright.LocatorClickOptions{Timeout: millis(e.timeout)})
}

func (e *element) GetAttribute(name string) (string, error) {
	return e.locator.GetAttribute(name)
}

func (e *element) Fill(value string) error {
	return e.locator.Fill(value)
}

func (e *element) Press(key string) error {
	return e.locator.Press(key)
}

func (e *element) InputValue() (string, error) {
	return e.locator.InputValue()
}
