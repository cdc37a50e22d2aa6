// Contract between site scrapers and the browser.
// Scrapers only see these small interfaces so they can be driven by fakes in tests.

package scraper

import (
	"context"
	"math/rand"
	"time"

	"go-bosszp-automation/internal/intercept"
)

type LoadState string

const (
	LoadStateLoad        LoadState = "load"
	LoadStateNetworkIdle LoadState = "networkidle"
)

// Element is one located node on the page.
type Element interface {
	Click() error
	GetAttribute(name string) (string, error)
	Fill(value string) error
	Press(key string) error
	InputValue() (string, error)
}

// Page is the single browser tab a scraper drives. Calls are never issued
// concurrently.
type Page interface {
	Goto(url string) error
	URL() string
	IsClosed() bool
	Evaluate(script string) (any, error)
	WaitForLoadState(state LoadState) error
	Locate(selector string) ([]Element, error)
	Route(pattern string, handler intercept.Handler) error
}

// Screenshotter is implemented by pages that can save a debug capture.
type Screenshotter interface {
	CaptureAndLog(name, message string) error
}

// Delay is a randomized pause in [Min, Max]. The zero value does not sleep.
type Delay struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

func (d Delay) Duration() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)+1))
}

// Wait sleeps for a random duration or until ctx is done.
func (d Delay) Wait(ctx context.Context) error {
	dur := d.Duration()
	if dur <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
