package browser

import (
	"fmt"
	"log"

	"github.com/playwright-community/playwright-go"
)

// Launch flags that keep the automation banner and the webdriver flag away.
var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--disable-dev-shm-usage",
}

type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywright starts the driver and a chromium instance.
func NewPlaywright(headless bool) (*PlaywrightManager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright (run `go run github.com/playwright-community/playwright-go/cmd/playwright install chromium`): %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args:     launchArgs,
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			log.Printf("⚠️ Error stopping playwright: %v", stopErr)
		}
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	return &PlaywrightManager{pw: pw, browser: browser}, nil
}

// NewContext opens a browser context. storageStatePath restores a saved
// session when non-empty; cookies are added on top.
func (pm *PlaywrightManager) NewContext(storageStatePath string, cookies []playwright.OptionalCookie) (playwright.BrowserContext, error) {
	opts := playwright.BrowserNewContextOptions{
		Locale: playwright.String("zh-CN"),
	}
	if storageStatePath != "" {
		opts.StorageStatePath = playwright.String(storageStatePath)
	}

	ctx, err := pm.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("could not create context: %w", err)
	}

	if len(cookies) > 0 {
		if err := ctx.AddCookies(cookies); err != nil {
			ctx.Close()
			return nil, fmt.Errorf("could not add cookies: %w", err)
		}
	}
	return ctx, nil
}

func (pm *PlaywrightManager) Close() error {
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			return err
		}
	}
	if pm.pw != nil {
		if err := pm.pw.Stop(); err != nil {
			return err
		}
	}
	log.Println("🛑 Browser closed")
	return nil
}
