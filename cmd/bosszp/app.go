package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-bosszp-automation/internal/ai"
	"go-bosszp-automation/internal/browser"
	"go-bosszp-automation/internal/config"
	"go-bosszp-automation/internal/database"
	"go-bosszp-automation/internal/input"
	"go-bosszp-automation/internal/reporter"
	"go-bosszp-automation/internal/session"
	"go-bosszp-automation/internal/store"

	"github.com/mattn/go-isatty"
	"github.com/playwright-community/playwright-go"
)

// app is what every command works on: the loaded config and the locked data dir.
type app struct {
	cfg   *config.Config
	site  config.Site
	store *store.Store
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	site, err := cfg.SiteConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, site: site, store: st}, nil
}

func (a *app) Close() {
	a.store.MustClose()
}

// runContext is cancelled on SIGINT/SIGTERM and after the configured session timeout.
func (a *app) runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if a.cfg.SessionTimeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SessionTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// prompter returns nil when no one can answer questions.
func prompter(noInput bool) input.Prompter {
	if noInput || !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil
	}
	return input.NewTerminal(os.Stdin, os.Stdout)
}

type browserSession struct {
	pm      *browser.PlaywrightManager
	context playwright.BrowserContext
	page    *browser.Page
	tracker *session.Tracker
}

// openBrowser restores the stored auth file, or falls back to exported cookies.
func (a *app) openBrowser(headless bool) (*browserSession, error) {
	pm, err := browser.NewPlaywright(headless)
	if err != nil {
		return nil, err
	}
	log.Println("✅ Playwright started")

	var statePath string
	var cookies []playwright.OptionalCookie
	authPath := a.store.Path(a.site.AuthFile)
	if a.store.Exists(a.site.AuthFile) {
		statePath = authPath
		log.Printf("🔐 Restoring session from %s", authPath)
	} else if a.cfg.CookiesPath != "" {
		cookies, err = browser.LoadCookies(a.cfg.CookiesPath)
		if err != nil {
			log.Printf("⚠️ Could not load cookies: %v", err)
		} else {
			log.Printf("🍪 Loaded %d cookies", len(cookies))
		}
	}

	bctx, err := pm.NewContext(statePath, cookies)
	if err != nil {
		pm.Close()
		return nil, err
	}

	page, err := browser.NewPage(bctx, browser.PageOptions{
		ScreenshotDir: a.cfg.Path("screenshots"),
		NavTimeout:    a.cfg.NavigationTimeout,
		LoadTimeout:   a.cfg.NetworkIdleTimeout,
	})
	if err != nil {
		bctx.Close()
		pm.Close()
		return nil, err
	}

	return &browserSession{
		pm:      pm,
		context: bctx,
		page:    page,
		tracker: session.NewTracker(page, a.site.URLs.HomePage, a.store, a.site.AuthFile),
	}, nil
}

func (b *browserSession) Close() {
	if err := b.page.Close(); err != nil {
		log.Printf("⚠️ Error closing page: %v", err)
	}
	if err := b.context.Close(); err != nil {
		log.Printf("⚠️ Error closing context: %v", err)
	}
	if err := b.pm.Close(); err != nil {
		log.Printf("⚠️ Error closing browser: %v", err)
	}
}

// openArchive returns nil when no archive is configured or it cannot be opened.
func (a *app) openArchive(ctx context.Context) *database.Repository {
	path := a.cfg.ArchiveFile()
	if path == "" {
		return nil
	}
	repo, err := database.Open(ctx, path)
	if err != nil {
		log.Printf("⚠️ Archive disabled: %v", err)
		return nil
	}
	return repo
}

// newNotifier returns nil when telegram is not configured.
func (a *app) newNotifier() *reporter.TelegramReporter {
	tg, err := reporter.NewTelegramReporter(a.cfg.Telegram, a.site)
	if err != nil {
		if !errors.Is(err, reporter.ErrNotConfigured) {
			log.Printf("⚠️ Telegram disabled: %v", err)
		}
		return nil
	}
	return tg
}

// newAnalyst returns nil when no API key is set.
func (a *app) newAnalyst() ai.Client {
	client, err := ai.NewGroqClient(a.cfg.AI.APIKey, a.cfg.AI.Model, a.cfg.AI.BaseURL)
	if err != nil {
		if !errors.Is(err, ai.ErrNoAPIKey) {
			log.Printf("⚠️ AI analysis disabled: %v", err)
		}
		return nil
	}
	return client
}
