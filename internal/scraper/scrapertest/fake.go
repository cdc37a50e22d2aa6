// Package scrapertest provides an in-memory scraper.Page for tests.
package scrapertest

import (
	"errors"
	"strings"
	"sync"

	"go-bosszp-automation/internal/intercept"
	"go-bosszp-automation/internal/scraper"
)

var ErrClosed = errors.New("page closed")

type Element struct {
	Attrs    map[string]string
	Value    string
	AttrErr  error
	ClickErr error
	// OnClick runs after a successful click.
	OnClick func()

	mu      sync.Mutex
	Filled  []string
	Pressed []string
	Clicks  int
}

func (e *Element) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.mu.Lock()
	e.Clicks++
	e.mu.Unlock()
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) GetAttribute(name string) (string, error) {
	if e.AttrErr != nil {
		return "", e.AttrErr
	}
	return e.Attrs[name], nil
}

func (e *Element) Fill(value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Filled = append(e.Filled, value)
	e.Value = value
	return nil
}

func (e *Element) Press(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Pressed = append(e.Pressed, key)
	return nil
}

func (e *Element) InputValue() (string, error) {
	return e.Value, nil
}

func (e *Element) ClickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Clicks
}

// Page scripts its answers through exported fields. Set them before use.
type Page struct {
	mu sync.Mutex

	CurrentURL string
	// URLs, when set, are returned by successive URL calls; the last one sticks.
	URLs      []string
	Closed    bool
	Elements  map[string][]scraper.Element
	LocateErr error
	GotoErr   error
	WaitErr   error
	SaveErr   error
	// Heights are returned by successive scrollHeight reads; the last one sticks.
	Heights []int
	// OnScroll runs each time the page is scrolled to the bottom.
	OnScroll func()
	// OnGoto runs after each navigation.
	OnGoto func(url string)

	Visited []string
	Scripts []string
	Waits   []scraper.LoadState
	Saved   []string
	Shots   []string
	routes  []route
	heights int
	urls    int
}

type route struct {
	prefix  string
	handler intercept.Handler
}

func NewPage() *Page {
	return &Page{Elements: map[string][]scraper.Element{}}
}

func (p *Page) Goto(url string) error {
	p.mu.Lock()
	if p.GotoErr != nil {
		p.mu.Unlock()
		return p.GotoErr
	}
	p.Visited = append(p.Visited, url)
	p.CurrentURL = url
	hook := p.OnGoto
	p.mu.Unlock()
	if hook != nil {
		hook(url)
	}
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.URLs) == 0 {
		return p.CurrentURL
	}
	u := p.URLs[p.urls]
	if p.urls < len(p.URLs)-1 {
		p.urls++
	}
	return u
}

func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Closed
}

func (p *Page) Close() {
	p.mu.Lock()
	p.Closed = true
	p.mu.Unlock()
}

func (p *Page) Evaluate(script string) (any, error) {
	p.mu.Lock()
	if p.Closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.Scripts = append(p.Scripts, script)
	if strings.Contains(script, "scrollTo") {
		hook := p.OnScroll
		p.mu.Unlock()
		if hook != nil {
			hook()
		}
		return nil, nil
	}
	defer p.mu.Unlock()
	if len(p.Heights) == 0 {
		return float64(0), nil
	}
	h := p.Heights[p.heights]
	if p.heights < len(p.Heights)-1 {
		p.heights++
	}
	return float64(h), nil
}

func (p *Page) WaitForLoadState(state scraper.LoadState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Waits = append(p.Waits, state)
	return p.WaitErr
}

func (p *Page) Locate(selector string) ([]scraper.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LocateErr != nil {
		return nil, p.LocateErr
	}
	return append([]scraper.Element(nil), p.Elements[selector]...), nil
}

// Route records handler for URLs starting with pattern minus a trailing "**".
func (p *Page) Route(pattern string, handler intercept.Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes = append(p.routes, route{prefix: strings.TrimSuffix(pattern, "**"), handler: handler})
	return nil
}

// Serve dispatches a request to the most recently registered matching route.
// ok is false when no route matches.
func (p *Page) Serve(url string, fetch intercept.FetchFunc) (intercept.Decision, bool) {
	p.mu.Lock()
	var handler intercept.Handler
	for i := len(p.routes) - 1; i >= 0; i-- {
		if strings.HasPrefix(url, p.routes[i].prefix) {
			handler = p.routes[i].handler
			break
		}
	}
	p.mu.Unlock()
	if handler == nil {
		return intercept.Decision{}, false
	}
	return handler(intercept.Request{URL: url}, fetch), true
}

func (p *Page) RouteCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.routes)
}

func (p *Page) SaveStorageState(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SaveErr != nil {
		return p.SaveErr
	}
	p.Saved = append(p.Saved, path)
	return nil
}

func (p *Page) CaptureAndLog(name, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Shots = append(p.Shots, name)
	return nil
}

// JSON is a FetchFunc answering 200 with body.
func JSON(body string) intercept.FetchFunc {
	return func() (*intercept.Response, error) {
		return &intercept.Response{
			Status:  200,
			Headers: map[string]string{"content-type": "application/json"},
			Body:    []byte(body),
		}, nil
	}
}
